package giphy_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giphy-random/go-client/pkg/giphy"
	"github.com/giphy-random/go-client/pkg/rest"
)

func TestErrorMsg(t *testing.T) {
	t.Parallel()
	e := &giphy.Error{Message: "Invalid authentication credentials"}
	e.SetResponse(&rest.Response{StatusCode: http.StatusUnauthorized})
	assert.Equal(t, `giphy api error[401]: Invalid authentication credentials`, e.Error())
}

func TestErrorMsg_Meta(t *testing.T) {
	t.Parallel()
	e := &giphy.Error{Meta: giphy.Meta{Status: http.StatusTooManyRequests, Msg: "Rate limit exceeded", ResponseID: "abc"}}
	assert.Equal(t, `giphy api error[429]: Rate limit exceeded, responseId: "abc"`, e.Error())
	assert.Equal(t, "Rate limit exceeded", e.ErrorUserMessage())
}

func TestErrorMsg_Empty(t *testing.T) {
	t.Parallel()
	e := &giphy.Error{}
	e.SetResponse(&rest.Response{StatusCode: http.StatusBadGateway})
	assert.Equal(t, `giphy api error[502]: Bad Gateway`, e.Error())
	assert.Equal(t, http.StatusBadGateway, e.StatusCode())
}
