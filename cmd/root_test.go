package cmd

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NREL/Spawn-sub001/internal/testutil"
	"github.com/NREL/Spawn-sub001/spawn/fmu"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCmd_ListsEngines(t *testing.T) {
	out := execute(t, "version", "--log", "error")

	assert.Contains(t, out, "FMI 2.0")
	assert.Contains(t, out, "lumped")
}

func TestModelDescriptionCmd_PrintsXML(t *testing.T) {
	// GIVEN the reference building input
	path := testutil.WriteRefBuilding(t)

	// WHEN printing its model description
	out := execute(t, "model-description", path)

	// THEN the output decodes as a model description
	md, err := fmu.ReadModelDescription(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "RefBldgSmallOffice", md.ModelName)
	assert.Len(t, md.ModelVariables, 16)
}

func TestCreateFMUCmd_WritesArchive(t *testing.T) {
	// GIVEN the reference building input and an output directory
	path := testutil.WriteRefBuilding(t)
	outDir := t.TempDir()
	t.Cleanup(func() { createOpts = fmu.CreateOptions{} })

	// WHEN creating the FMU
	out := execute(t, "create-fmu", path, "--output-dir", outDir, "--no-compress")

	// THEN the printed path is a zip holding the model description
	fmuPath := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(outDir, "RefBldgSmallOffice.fmu"), fmuPath)
	zr, err := zip.OpenReader(fmuPath)
	require.NoError(t, err)
	defer zr.Close()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Store, f.Method)
	}
	assert.Contains(t, names, "modelDescription.xml")
	assert.Contains(t, names, "resources/model.spawn")
}
