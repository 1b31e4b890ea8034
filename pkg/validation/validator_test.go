package validation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type form struct {
	Email string `form:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required,min=3,max=5"`
	Kind  string `json:"kind" binding:"omitempty,oneof=a b"`
}

func TestToDetails(t *testing.T) {
	Init()

	tests := []struct {
		name string
		in   form
		want map[string]string
	}{
		{"missing", form{}, map[string]string{"email": "is required", "name": "is required"}},
		{"bad email", form{Email: "x", Name: "abcd"}, map[string]string{"email": "must be a valid email"}},
		{"too short", form{Email: "a@example.com", Name: "ab"}, map[string]string{"name": "must be at least 3 characters long"}},
		{"too long", form{Email: "a@example.com", Name: "abcdef"}, map[string]string{"name": "must be at most 5 characters long"}},
		{"oneof", form{Email: "a@example.com", Name: "abcd", Kind: "c"}, map[string]string{"kind": "must be one of: a, b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(tt.in)
			assert.Equal(t, tt.want, ToDetails(err))
		})
	}
}

func TestToDetailsNonValidationErrors(t *testing.T) {
	assert.Nil(t, ToDetails(nil))

	var v map[string]any
	err := json.Unmarshal([]byte("{nope"), &v)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("eof")))
}
