package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNetBIOSName(t *testing.T) {
	n := NewNetBIOSName("HOST", 0x20)
	assert.Equal(t, "HOST           ", string(n[:15]))
	assert.Equal(t, byte(0x20), n.Suffix())
	assert.Equal(t, "HOST", n.Name())
	assert.Equal(t, "HOST<20>", n.String())

	long := NewNetBIOSName("ABCDEFGHIJKLMNOPQRST", 0x00)
	assert.Equal(t, "ABCDEFGHIJKLMNO", long.Name())
	assert.Equal(t, "ABCDEFGHIJKLMNO<00>", long.String())
}

func TestNetBIOSName_NameTrimsNulPadding(t *testing.T) {
	var n NetBIOSName
	n[0] = '*'
	assert.Equal(t, "*", n.Name())
	assert.Equal(t, "*<00>", n.String())
}

func TestValidateScope(t *testing.T) {
	tests := []struct {
		name    string
		scope   string
		wantErr string
	}{
		{name: "empty", scope: ""},
		{name: "single label", scope: "corp"},
		{name: "dotted", scope: "lab.example.com"},
		{name: "empty label", scope: "lab..com", wantErr: "empty label"},
		{name: "trailing dot", scope: "lab.", wantErr: "empty label"},
		{name: "label too long", scope: strings.Repeat("a", 64), wantErr: "scope label too long"},
		{name: "label at limit", scope: strings.Repeat("a", 63)},
		{name: "scope too long", scope: strings.Repeat(strings.Repeat("a", 60)+".", 4) + "b", wantErr: "scope too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScope(tt.scope)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
