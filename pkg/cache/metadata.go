package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"

	"github.com/minsafe/msv-db/pkg/utils"
)

const metadataFile = "metadata.json"

// Metadata describes the store alongside the database file, so callers
// can detect schema bumps without opening the store itself.
type Metadata struct {
	Version   int `json:",omitempty"`
	UpdatedAt time.Time
}

// MetadataClient reads and writes the store metadata file.
type MetadataClient struct {
	filePath string
}

func NewMetadataClient(cacheDir string) MetadataClient {
	return MetadataClient{
		filePath: MetadataPath(cacheDir),
	}
}

func MetadataPath(cacheDir string) string {
	return filepath.Join(cacheDir, "db", metadataFile)
}

func (c MetadataClient) Get() (Metadata, error) {
	var metadata Metadata
	if err := utils.UnmarshalJSONFile(&metadata, c.filePath); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (c MetadataClient) Update(meta Metadata) error {
	eb := oops.With("file_path", c.filePath)

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0o744); err != nil {
		return eb.Wrapf(err, "mkdir error")
	}

	f, err := os.Create(c.filePath)
	if err != nil {
		return eb.Wrapf(err, "file create error")
	}
	defer f.Close()

	if err = json.NewEncoder(f).Encode(&meta); err != nil {
		return eb.Wrapf(err, "json encode error")
	}
	return nil
}

func (c MetadataClient) Delete() error {
	if err := os.Remove(c.filePath); err != nil {
		return oops.With("file_path", c.filePath).Wrapf(err, "file remove error")
	}
	return nil
}
