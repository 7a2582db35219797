package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FakeBundle describes an .app bundle to create.
type FakeBundle struct {
	Dir         string // Parent directory, e.g. Applications
	FileName    string // Bundle directory name without .app
	BundleID    string
	DisplayName string
	Name        string
}

// CreateBundles writes each bundle under root with a JSON Info.plist
// (plutil accepts JSON input, and tests can read it directly).
func CreateBundles(root string, bundles ...FakeBundle) error {
	for _, b := range bundles {
		contents := filepath.Join(root, b.Dir, b.FileName+".app", "Contents")
		if err := os.MkdirAll(filepath.Join(contents, "MacOS"), 0755); err != nil {
			return err
		}

		plist := map[string]string{}
		if b.BundleID != "" {
			plist["CFBundleIdentifier"] = b.BundleID
		}
		if b.DisplayName != "" {
			plist["CFBundleDisplayName"] = b.DisplayName
		}
		if b.Name != "" {
			plist["CFBundleName"] = b.Name
		}
		data, err := json.Marshal(plist)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(contents, "Info.plist"), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// PlistReader is a command runner that answers plutil by returning the
// Info.plist file unchanged. Use it with bundles from CreateBundles.
type PlistReader struct{}

// Run is unused by the registry and always succeeds.
func (PlistReader) Run(name string, args ...string) error {
	return nil
}

// Output returns the contents of the last argument.
func (PlistReader) Output(name string, args ...string) ([]byte, error) {
	return os.ReadFile(args[len(args)-1])
}
