// Package seed provides the fallback wallpaper dataset shown when the
// backend is unconfigured, unreachable or returns nothing.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed wallpapers.yaml
var embedded []byte

// Item is one fallback wallpaper. It has no identifier or timestamps; those
// are synthesized when the dataset is wrapped into catalog records.
type Item struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	ImageURL    string   `yaml:"image_url"`
	Tags        []string `yaml:"tags"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	FileSize    int64    `yaml:"file_size"`
}

type document struct {
	Wallpapers []Item `yaml:"wallpapers"`
}

// Default returns the embedded dataset.
func Default() []Item {
	items, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("seed: embedded dataset is invalid: %v", err))
	}
	return items
}

// Load returns the dataset at path, or the embedded one when path is empty.
func Load(path string) ([]Item, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	items, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return items, nil
}

// Parse decodes and checks a dataset document.
func Parse(raw []byte) ([]Item, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Wallpapers) == 0 {
		return nil, errors.New("dataset has no wallpapers")
	}
	for i, item := range doc.Wallpapers {
		if err := item.validate(); err != nil {
			return nil, fmt.Errorf("wallpaper %d: %w", i, err)
		}
	}
	return doc.Wallpapers, nil
}

func (it Item) validate() error {
	switch {
	case strings.TrimSpace(it.Title) == "":
		return errors.New("title is required")
	case strings.TrimSpace(it.ImageURL) == "":
		return errors.New("image_url is required")
	case it.Width <= 0 || it.Height <= 0:
		return errors.New("width and height must be positive")
	}
	return nil
}
