package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

func TestParseFlags(t *testing.T) {
	f, err := parseFlags([]string{"-c", "/etc/ado.yaml", "--project", "proj-2", "--root", "42", "-o", "/tmp/out"})
	require.NoError(t, err)
	assert.Equal(t, opFlags{configPath: "/etc/ado.yaml", project: "proj-2", root: "42", outDir: "/tmp/out"}, f)

	f, err = parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", f.configPath)

	_, err = parseFlags([]string{"--unknown"})
	assert.Error(t, err)
}

func TestOverrideValues(t *testing.T) {
	values := models.ValueSet{"wpproject": "proj-1", "wpEpic": "7", "personalAccessToken": "secret"}

	got := overrideValues(values, map[string]string{
		models.KeyWPProject: "proj-2",
		models.KeyWPEpic:    "",
	})

	assert.Equal(t, models.ValueSet{
		models.KeyWPProject:   "proj-2",
		"wpEpic":              "7",
		"personalAccessToken": "secret",
	}, got)
	assert.Equal(t, "proj-1", values.Get(models.KeyWPProject))
}
