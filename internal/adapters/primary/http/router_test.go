package http

import (
	stdhttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_UnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodGet, "/api/v1/pizzas", "", nil, "")

	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "NOT_FOUND", resp.Code)
	assert.Equal(t, "Route not found", resp.Error)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, stdhttp.MethodDelete, "/health", "", nil, "")

	assert.Equal(t, stdhttp.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeBody[ErrorResponse](t, rec).Code)
}
