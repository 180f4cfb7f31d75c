// SPDX-License-Identifier: MPL-2.0

// Package artifact describes finished package files and the metadata written
// next to them.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sunpkg/sunpkg/internal/naming"
)

// MetadataSuffix is appended to an artifact path to name its metadata file.
const MetadataSuffix = ".metadata.json"

// Formats recorded in metadata.
const (
	FormatSolaris = "solaris"
	FormatIPS     = "ips"
)

// ErrInvalidArtifact is wrapped by every validation failure.
var ErrInvalidArtifact = errors.New("invalid artifact")

type (
	// Artifact is a package file on disk.
	Artifact struct {
		Name string
		Path string
	}

	// Metadata describes an artifact for publishers.
	Metadata struct {
		Name      string `json:"name"`
		Version   string `json:"version"`
		Iteration string `json:"iteration"`
		Arch      string `json:"arch"`
		Format    string `json:"format"`
		Basename  string `json:"basename"`
		Size      int64  `json:"size"`
		SHA256    string `json:"sha256"`
	}
)

// New returns the artifact at path, named after its base name.
func New(path string) Artifact {
	return Artifact{Name: filepath.Base(path), Path: path}
}

// MetadataPath is the location of the artifact's metadata file.
func (a Artifact) MetadataPath() string {
	return a.Path + MetadataSuffix
}

// WriteMetadata checksums the artifact and writes its metadata file.
func WriteMetadata(a Artifact, d naming.Descriptor, format string) (*Metadata, error) {
	size, sum, err := checksum(a.Path)
	if err != nil {
		return nil, err
	}
	md := &Metadata{
		Name:      d.SafeName,
		Version:   d.Version,
		Iteration: d.Iteration,
		Arch:      d.Architecture,
		Format:    format,
		Basename:  filepath.Base(a.Path),
		Size:      size,
		SHA256:    sum,
	}
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata for %s: %w", a.Name, err)
	}
	if err := os.WriteFile(a.MetadataPath(), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write metadata for %s: %w", a.Name, err)
	}
	return md, nil
}

// ReadMetadata loads the artifact's metadata file.
func ReadMetadata(a Artifact) (*Metadata, error) {
	data, err := os.ReadFile(a.MetadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: metadata file %s not found", ErrInvalidArtifact, a.Name, a.MetadataPath())
		}
		return nil, fmt.Errorf("read metadata for %s: %w", a.Name, err)
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed metadata: %w", ErrInvalidArtifact, a.Name, err)
	}
	return &md, nil
}

// Validate checks that the artifact is a non-empty regular file whose
// metadata file matches its size and checksum.
func Validate(a Artifact) (*Metadata, error) {
	info, err := os.Stat(a.Path)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s: file %s does not exist", ErrInvalidArtifact, a.Name, a.Path)
	case err != nil:
		return nil, fmt.Errorf("stat artifact %s: %w", a.Name, err)
	case !info.Mode().IsRegular():
		return nil, fmt.Errorf("%w: %s: %s is not a regular file", ErrInvalidArtifact, a.Name, a.Path)
	case info.Size() == 0:
		return nil, fmt.Errorf("%w: %s: %s is empty", ErrInvalidArtifact, a.Name, a.Path)
	}

	md, err := ReadMetadata(a)
	if err != nil {
		return nil, err
	}
	if md.Name == "" || md.Version == "" {
		return nil, fmt.Errorf("%w: %s: metadata lacks name or version", ErrInvalidArtifact, a.Name)
	}
	if md.Size != info.Size() {
		return nil, fmt.Errorf("%w: %s: size %d does not match metadata size %d", ErrInvalidArtifact, a.Name, info.Size(), md.Size)
	}
	_, sum, err := checksum(a.Path)
	if err != nil {
		return nil, err
	}
	if sum != md.SHA256 {
		return nil, fmt.Errorf("%w: %s: sha256 %s does not match metadata %s", ErrInvalidArtifact, a.Name, sum, md.SHA256)
	}
	return md, nil
}

func checksum(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("checksum artifact %s: %w", path, err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
