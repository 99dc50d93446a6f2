package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/outline-backup/internal/domain"
)

func TestSelector_IncludeFile(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.BackupConfig
		path string
		want bool
	}{
		{"all mode", domain.BackupConfig{Mode: domain.BackupModeAll}, "a/b.bin", true},
		{"custom match", domain.BackupConfig{Mode: domain.BackupModeCustom, Extensions: domain.NewExtensionSet(".txt")}, "a/b.txt", true},
		{"custom match is case insensitive", domain.BackupConfig{Mode: domain.BackupModeCustom, Extensions: domain.NewExtensionSet("TXT")}, "B.Txt", true},
		{"custom miss", domain.BackupConfig{Mode: domain.BackupModeCustom, Extensions: domain.NewExtensionSet(".txt")}, "b.pdf", false},
		{"custom without extension", domain.BackupConfig{Mode: domain.BackupModeCustom, Extensions: domain.NewExtensionSet(".txt")}, "Makefile", false},
		{"custom with empty filter", domain.BackupConfig{Mode: domain.BackupModeCustom}, "b.pdf", true},
		{"excluded", domain.BackupConfig{Exclude: []string{"**/*.tmp"}}, "a/b/c.tmp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := NewSelector(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sel.IncludeFile(tt.path))
		})
	}
}

func TestSelector_SkipDir(t *testing.T) {
	sel, err := NewSelector(domain.BackupConfig{Exclude: []string{"node_modules", "**/.git"}})
	require.NoError(t, err)

	assert.True(t, sel.SkipDir("node_modules"))
	assert.True(t, sel.SkipDir("project/.git"))
	assert.False(t, sel.SkipDir("project/src"))
}

func TestNewSelector_InvalidPattern(t *testing.T) {
	_, err := NewSelector(domain.BackupConfig{Exclude: []string{"a/[b"}})
	assert.Error(t, err)
}
