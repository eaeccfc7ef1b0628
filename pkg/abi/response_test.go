package abi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseConstructors(t *testing.T) {
	text := Text("hello")
	assert.Equal(t, uint16(http.StatusOK), text.StatusCode)
	assert.Equal(t, []byte("hello"), text.Body)
	assert.Equal(t, "text/plain;charset=UTF-8", text.Headers["Content-Type"])
	assert.False(t, text.HasError())

	html := HTML("<p>hi</p>")
	assert.Equal(t, "text/html;charset=UTF-8", html.Headers["Content-Type"])

	data, err := JSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data.Body))
	assert.Equal(t, "application/json;charset=UTF-8", data.Headers["Content-Type"])

	_, err = JSON(make(chan int))
	assert.Error(t, err)

	notFound := NotFound()
	assert.Equal(t, uint16(http.StatusNotFound), notFound.StatusCode)
	assert.Equal(t, "page not found", string(notFound.Body))
}

func TestBytes_CopiesBody(t *testing.T) {
	body := []byte{1, 2, 3}
	resp := Bytes(body, "application/octet-stream")
	body[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, resp.Body)
}

func TestErrorResponse(t *testing.T) {
	root := errors.New("connection refused")
	err := fmt.Errorf("fetch request 7: %w", fmt.Errorf("failed to execute request: %w", root))

	resp := ErrorResponse(err)
	assert.Equal(t, uint16(http.StatusInternalServerError), resp.StatusCode)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "[plugin error] fetch request 7")
	assert.Contains(t, *resp.Error, "caused by: connection refused")
	assert.Empty(t, resp.Body)
}

func TestErrorResponse_CauseChainIsBounded(t *testing.T) {
	err := errors.New("root")
	for i := 0; i < 10; i++ {
		err = fmt.Errorf("level %d: %w", i, err)
	}
	resp := ErrorResponse(err)
	require.NotNil(t, resp.Error)
	assert.NotContains(t, *resp.Error, "caused by: root")

	nilResp := ErrorResponse(nil)
	assert.NotEmpty(t, *nilResp.Error)
}
