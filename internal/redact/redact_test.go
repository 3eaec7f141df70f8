package redact

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "unix path",
			input: "open /var/lib/taskman/data/task-manager-tasks.json: permission denied",
			want:  "open [REDACTED_PATH]: permission denied",
		},
		{
			name:  "windows path",
			input: `open C:\taskman\data\tasks.json failed`,
			want:  "open [REDACTED_PATH] failed",
		},
		{
			name:  "sql fragment",
			input: "near SELECT key, value FROM storage_items: syntax error",
			want:  "near [REDACTED_SQL]: syntax error",
		},
		{
			name:  "connection string credentials",
			input: "dial db://user:hunter2@localhost failed",
			want:  "dial [REDACTED_CREDENTIAL]localhost failed",
		},
		{
			name:  "clean string untouched",
			input: "task not found",
			want:  "task not found",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, String(tt.input))
		})
	}
}

func TestError(t *testing.T) {
	assert.Equal(t, "", Error(nil))

	err := fmt.Errorf("write snapshot: %w", errors.New("open /home/user/.taskman/tasks.json: disk full"))
	got := Error(err)
	assert.NotContains(t, got, "/home/user")
	assert.Contains(t, got, "[REDACTED_PATH]")
}
