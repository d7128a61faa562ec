package testsupport

import (
	"os"
	"path/filepath"
	"strings"
)

// LoadFixture reads a file relative to the calling test's package.
func LoadFixture(path string) ([]byte, error) {
	return os.ReadFile(filepath.Clean(path))
}

// FixturePairs returns input/expected pairs for every file in dir ending in
// inputExt that has a sibling ending in wantExt.
func FixturePairs(dir, inputExt, wantExt string) (map[string][2]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	pairs := map[string][2]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, inputExt) {
			continue
		}
		base := strings.TrimSuffix(name, inputExt)
		input, err := LoadFixture(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		want, err := LoadFixture(filepath.Join(dir, base+wantExt))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		pairs[base] = [2]string{string(input), strings.TrimRight(string(want), "\n")}
	}
	return pairs, nil
}
