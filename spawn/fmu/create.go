package fmu

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/NREL/Spawn-sub001/spawn/fmi"
	"github.com/NREL/Spawn-sub001/spawn/input"
)

// CreateOptions controls where and how an FMU is written.
type CreateOptions struct {
	// OutputPath is the .fmu file to write. It takes precedence over OutputDir.
	OutputPath string
	// OutputDir receives <fmu name>.fmu. Default is the current directory.
	OutputDir string
	// NoZip leaves the staging directory in place instead of zipping it.
	NoZip bool
	// NoCompress stores zip entries without compression.
	NoCompress bool
	// LibraryPath is the epfmi shared library copied into binaries/.
	LibraryPath string
	// GOOS selects the binaries/ platform; default runtime.GOOS.
	GOOS string
}

// Platform returns the FMI platform directory and the shared library
// extension for goos.
func Platform(goos string) (dir, ext string, err error) {
	switch goos {
	case "linux":
		return "linux64", ".so", nil
	case "darwin":
		return "darwin64", ".dylib", nil
	case "windows":
		return "win64", ".dll", nil
	}
	return "", "", fmt.Errorf("no FMI platform for %s", goos)
}

// OutputPath resolves the .fmu path for in and validates it.
func OutputPath(in *input.Input, opts CreateOptions) (string, error) {
	fmuPath := in.FMUBaseName() + ".fmu"
	switch {
	case opts.OutputPath != "":
		fmuPath = opts.OutputPath
	case opts.OutputDir != "":
		fmuPath = filepath.Join(opts.OutputDir, fmuPath)
	}
	if ext := filepath.Ext(fmuPath); ext != ".fmu" {
		return "", fmt.Errorf("FMU output file name must have the '.fmu' extension, but instead contains %q", ext)
	}
	if strings.TrimSuffix(filepath.Base(fmuPath), ".fmu") == "" {
		return "", fmt.Errorf("FMU output name cannot be empty")
	}
	if info, err := os.Stat(fmuPath); err == nil && info.IsDir() {
		return "", fmt.Errorf("FMU output path is the existing directory %s", fmuPath)
	}
	return filepath.Abs(fmuPath)
}

// Create stages the FMU for in and zips it. It returns the path of the .fmu
// file, or of the staging directory when NoZip is set.
func Create(in *input.Input, opts CreateOptions) (string, error) {
	fmuPath, err := OutputPath(in, opts)
	if err != nil {
		return "", err
	}
	md, err := ForInput(in)
	if err != nil {
		return "", err
	}
	model, err := in.BuildingModel()
	if err != nil {
		return "", err
	}

	staging := strings.TrimSuffix(fmuPath, ".fmu")
	resources := filepath.Join(staging, "resources")
	for _, p := range []string{fmuPath, staging} {
		if err := os.RemoveAll(p); err != nil {
			return "", fmt.Errorf("removing previous FMU: %w", err)
		}
	}
	if err := os.MkdirAll(resources, 0o755); err != nil {
		return "", fmt.Errorf("creating FMU staging directory: %w", err)
	}

	staged := *in
	modelName := filepath.Base(in.ModelPath())
	if err := copyFile(in.ModelPath(), filepath.Join(resources, modelName)); err != nil {
		return "", err
	}
	staged.SetModelPath(modelName)
	if in.WeatherPath() != "" {
		weatherName := filepath.Base(in.WeatherPath())
		if err := copyFile(in.WeatherPath(), filepath.Join(resources, weatherName)); err != nil {
			return "", err
		}
		staged.SetWeatherPath(weatherName)
	}
	modelDir := filepath.Dir(in.ModelPath())
	for _, name := range model.Names("Schedule:File") {
		_, f, _ := model.Object("Schedule:File", name)
		file := f.String("file_name")
		if file == "" {
			continue
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(modelDir, file)
		}
		if err := copyFile(file, filepath.Join(resources, filepath.Base(file))); err != nil {
			return "", fmt.Errorf("schedule %s: %w", name, err)
		}
	}
	if err := staged.Save(filepath.Join(resources, fmi.InputFile)); err != nil {
		return "", err
	}

	if opts.LibraryPath != "" {
		goos := opts.GOOS
		if goos == "" {
			goos = runtime.GOOS
		}
		dir, ext, err := Platform(goos)
		if err != nil {
			return "", err
		}
		lib := filepath.Join(staging, "binaries", dir, ModelIdentifier+ext)
		if err := os.MkdirAll(filepath.Dir(lib), 0o755); err != nil {
			return "", fmt.Errorf("creating binaries directory: %w", err)
		}
		if err := copyFile(opts.LibraryPath, lib); err != nil {
			return "", err
		}
	}

	mdFile, err := os.Create(filepath.Join(staging, "modelDescription.xml"))
	if err != nil {
		return "", fmt.Errorf("creating model description: %w", err)
	}
	if err := md.Write(mdFile); err != nil {
		mdFile.Close()
		return "", err
	}
	if err := mdFile.Close(); err != nil {
		return "", err
	}

	if opts.NoZip {
		logrus.Infof("FMU staged in %s", staging)
		return staging, nil
	}
	if err := zipDir(staging, fmuPath, !opts.NoCompress); err != nil {
		return "", err
	}
	if err := os.RemoveAll(staging); err != nil {
		return "", fmt.Errorf("removing staging directory: %w", err)
	}
	logrus.Infof("FMU written to %s (%d variables)", fmuPath, len(md.ModelVariables))
	return fmuPath, nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("copying %s: %w", from, err)
	}
	defer src.Close()
	dst, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("copying %s: %w", from, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copying %s: %w", from, err)
	}
	return dst.Close()
}

// zipDir writes the files under dir to a zip archive at dest, with paths
// relative to dir.
func zipDir(dir, dest string, compress bool) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating FMU: %w", err)
	}
	zw := zip.NewWriter(out)
	method := zip.Store
	if compress {
		method = zip.Deflate
	}
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: filepath.ToSlash(rel), Method: method})
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		return fmt.Errorf("zipping FMU: %w", walkErr)
	}
	return nil
}
