package layerfs

import (
	"os"
	"strings"
)

// basicAttributes builds the "basic" attribute group from a FileInfo.
func basicAttributes(info os.FileInfo) map[string]any {
	return map[string]any{
		"isRegularFile":    info.Mode().IsRegular(),
		"isDirectory":      info.IsDir(),
		"isSymbolicLink":   info.Mode()&os.ModeSymlink != 0,
		"size":             info.Size(),
		"lastModifiedTime": info.ModTime(),
		"mode":             info.Mode(),
	}
}

// selectAttributes narrows an attribute map to the names requested by an
// attribute spec. Specs follow the "group:name,name" form; an empty spec,
// a bare group, or "*" selects the whole group.
func selectAttributes(spec string, attrs map[string]any) (map[string]any, error) {
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		if group := spec[:i]; group != "basic" {
			return nil, &os.PathError{Op: "readattrs", Path: spec, Err: ErrUnsupported}
		}
		spec = spec[i+1:]
	} else if spec == "basic" {
		spec = ""
	}
	if spec == "" || spec == "*" {
		return attrs, nil
	}
	selected := make(map[string]any)
	for _, name := range strings.Split(spec, ",") {
		if v, ok := attrs[name]; ok {
			selected[name] = v
		}
	}
	return selected, nil
}
