package instrumentation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractUserDomain(t *testing.T) {
	tests := map[string]string{
		"ana@example.com":   "example.com",
		"Luis@Empresa.ES":   "empresa.es",
		"x@sub.example.com": "sub.example.com",
		"invalid":           "unknown",
		"":                  "unknown",
		"@":                 "unknown",
		"user@":             "unknown",
		"a@b@example.com":   "unknown",
		"@domain.com":       "domain.com",
	}

	for email, expected := range tests {
		t.Run(email, func(t *testing.T) {
			assert.Equal(t, expected, ExtractUserDomain(email))
		})
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusSuccess, Status(nil))
	assert.Equal(t, StatusError, Status(errors.New("boom")))
}
