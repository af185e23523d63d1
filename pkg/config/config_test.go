package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "transfer_certificates", cfg.TC.Bucket)
	assert.Equal(t, "txt", cfg.TC.Format)
	assert.Equal(t, 10*time.Second, cfg.TC.CallTimeout)
	assert.Equal(t, 3, cfg.TC.LookupRetries)
	assert.True(t, cfg.Auth.AllowSignup)
	assert.Equal(t, "ADMIN", cfg.Auth.DefaultRole)
	assert.Equal(t, 12*time.Hour, cfg.Registration.DraftTTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestOverridesAreNormalised(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("TC_FORMAT", "PDF")
	v.Set("AUTH_DEFAULT_ROLE", " student ")
	v.Set("TC_CALL_TIMEOUT", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	v.Set("STORAGE_PUBLIC_BASE_URL", "https://cdn.test/public/")
	cfg := fromViper(v)

	assert.Equal(t, "pdf", cfg.TC.Format)
	assert.Equal(t, "STUDENT", cfg.Auth.DefaultRole)
	assert.Equal(t, 10*time.Second, cfg.TC.CallTimeout)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://cdn.test/public", cfg.Storage.PublicBaseURL)
}
