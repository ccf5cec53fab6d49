package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dailypy/mediaflow/pkg/logger"
)

var log = logger.Get("Scanner")

// ErrScan is the root of every error returned by Scan. A scan error
// is fatal to the whole run, as no items can be discovered.
var ErrScan = errors.New("folder scan failed")

var (
	DefaultVideoExtensions   = []string{".mp4"}
	DefaultSidecarExtensions = []string{".json"}
)

type (
	// MediaItem is a single video discovered by the Scanner, paired with
	// an optional sidecar metadata file sharing the videos stem.
	MediaItem struct {
		Stem        string
		VideoPath   string
		SidecarPath string
	}

	Config struct {
		VideoExtensions   []string `yaml:"video_extensions"`
		SidecarExtensions []string `yaml:"sidecar_extensions"`
	}

	Scanner struct {
		videoExts   map[string]struct{}
		sidecarExts []string
	}
)

// HasSidecar returns true if a sidecar file was paired with this item.
func (item MediaItem) HasSidecar() bool { return item.SidecarPath != "" }

// VideoFilename returns the base name (including extension) of the video.
func (item MediaItem) VideoFilename() string { return filepath.Base(item.VideoPath) }

// SidecarFilename returns the base name of the sidecar, or an
// empty string if the item has no sidecar.
func (item MediaItem) SidecarFilename() string {
	if !item.HasSidecar() {
		return ""
	}

	return filepath.Base(item.SidecarPath)
}

func (item MediaItem) String() string {
	return fmt.Sprintf("MediaItem{stem=%s sidecar=%v}", item.Stem, item.HasSidecar())
}

// New constructs a Scanner which matches the extensions in the config
// provided. Missing extension lists fall back to the defaults.
func New(config Config) *Scanner {
	videoExts := config.VideoExtensions
	if len(videoExts) == 0 {
		videoExts = DefaultVideoExtensions
	}
	sidecarExts := config.SidecarExtensions
	if len(sidecarExts) == 0 {
		sidecarExts = DefaultSidecarExtensions
	}

	scanner := &Scanner{videoExts: make(map[string]struct{}, len(videoExts))}
	for _, ext := range videoExts {
		scanner.videoExts[normaliseExt(ext)] = struct{}{}
	}
	for _, ext := range sidecarExts {
		scanner.sidecarExts = append(scanner.sidecarExts, normaliseExt(ext))
	}

	return scanner
}

// Scan finds every video inside of the root directory provided. If recursive
// is false, only the top-level of the directory is considered.
//
// The items returned are sorted by their path so that repeated scans
// of the same tree always yield the same order. Each video is paired with
// a sidecar IFF a file with the same stem and a sidecar extension exists
// in the same directory as the video.
func (scanner *Scanner) Scan(root string, recursive bool) ([]MediaItem, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: directory '%s' cannot be accessed: %w", ErrScan, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: '%s' is not a directory", ErrScan, root)
	}

	videos := make([]string, 0)
	// candidates maps dir+stem+ext to the sidecar found there, so that pairing
	// does not need a second trip to the file system.
	candidates := make(map[string]string)
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			if path != root && (!recursive || isHidden(entry.Name())) {
				return filepath.SkipDir
			}

			return nil
		}

		if isHidden(entry.Name()) || !isRegularFile(path, entry) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := scanner.videoExts[ext]; ok {
			videos = append(videos, path)
			return nil
		}

		key := sidecarKey(filepath.Dir(path), stemOf(path), ext)
		if existing, ok := candidates[key]; !ok || path < existing {
			candidates[key] = path
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk '%s': %w", ErrScan, root, err)
	}

	sort.Strings(videos)
	items := make([]MediaItem, 0, len(videos))
	for _, videoPath := range videos {
		stem := stemOf(videoPath)
		items = append(items, MediaItem{
			Stem:        stem,
			VideoPath:   videoPath,
			SidecarPath: scanner.findSidecar(candidates, filepath.Dir(videoPath), stem),
		})
	}

	log.Emit(logger.DEBUG, "Scan of %s (recursive=%v) found %d videos\n", root, recursive, len(items))
	return items, nil
}

// findSidecar returns the sidecar for the stem in dir, trying the
// configured sidecar extensions in order. Extensions are compared
// case-insensitively.
func (scanner *Scanner) findSidecar(candidates map[string]string, dir string, stem string) string {
	for _, ext := range scanner.sidecarExts {
		if path, ok := candidates[sidecarKey(dir, stem, ext)]; ok {
			return path
		}
	}

	return ""
}

// isRegularFile reports whether the entry is a regular file. Symbolic links are
// resolved and accepted when they point at a regular file; links to directories
// are never followed.
func isRegularFile(path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Emit(logger.WARNING, "Skipping %s: symbolic link cannot be resolved: %v\n", path, err)
		return false
	}
	if !info.Mode().IsRegular() {
		log.Emit(logger.DEBUG, "Skipping %s: symbolic link does not point at a regular file\n", path)
		return false
	}

	return true
}

func sidecarKey(dir, stem, ext string) string { return dir + "\x00" + stem + "\x00" + ext }

func stemOf(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func normaliseExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return ext
}

func isHidden(name string) bool { return strings.HasPrefix(name, ".") }
