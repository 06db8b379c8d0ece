package viper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

type serializerSection struct {
	MaxRecursion int  `mapstructure:"max-recursion"`
	Roundtrip    bool `mapstructure:"roundtrip"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	cases := map[string]string{
		"graphdoc.yaml": "serializer:\n  max-recursion: 12\n  roundtrip: true\n",
		"graphdoc.json": `{"serializer": {"max-recursion": 12, "roundtrip": true}}`,
		"graphdoc.toml": "[serializer]\nmax-recursion = 12\nroundtrip = true\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			c := New()
			require.NoError(t, c.LoadFile(writeFile(t, name, content)))

			var section serializerSection
			require.NoError(t, c.UnmarshalKey("serializer", &section))
			assert.Equal(t, serializerSection{MaxRecursion: 12, Roundtrip: true}, section)
			assert.True(t, c.IsSet("serializer.roundtrip"))
			assert.Equal(t, 12, c.GetInt("serializer.max-recursion"))
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.LoadFile(writeFile(t, "graphdoc.ini", "a=b")), merr.ErrParameterInvalid)
	assert.ErrorIs(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")), merr.ErrIoFailed)
}

func TestDefaultsAndEnv(t *testing.T) {
	c := New()
	c.SetDefault("serializer.max-recursion", 50)
	c.SetDefault("logging.level", "info")
	c.BindEnv("GRAPHDOC_TEST")
	t.Setenv("GRAPHDOC_TEST_LOGGING_LEVEL", "debug")

	assert.Equal(t, 50, c.GetInt("serializer.max-recursion"))
	assert.Equal(t, "debug", c.GetString("logging.level"))
	assert.False(t, c.GetBool("serializer.roundtrip"))
}
