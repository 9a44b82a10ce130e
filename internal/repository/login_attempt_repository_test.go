package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestLoginAttemptDefaults(t *testing.T) {
	repo := NewLoginAttemptRepository(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), 0)
	assert.Equal(t, 15*time.Minute, repo.window)
	assert.Equal(t, "login:fallos:admin", repo.key("admin"))
}

func TestLoginAttemptSurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	repo := NewLoginAttemptRepository(client, time.Minute)

	_, err := repo.Failures(context.Background(), "admin")
	assert.Error(t, err)
	_, err = repo.RegisterFailure(context.Background(), "admin")
	assert.Error(t, err)
	assert.Error(t, repo.Reset(context.Background(), "admin"))
}
