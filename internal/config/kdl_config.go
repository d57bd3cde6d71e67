package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// ProjectFile is the name of the project-level config file, analogous to
// the teacher's .lci.kdl but describing a target model instead of a search
// index.
const ProjectFile = ".fsstate.kdl"

// LoadKDL reads ProjectFile from dir, if present. Returns nil, nil when no
// file exists — callers fall back to Default.
func LoadKDL(dir string) (*Config, error) {
	path := filepath.Join(dir, ProjectFile)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ProjectFile, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	if cfg.Project.Root == "" {
		cfg.Project.Root = dir
	} else if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(dir, cfg.Project.Root))
	}
	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	cfg := Default("")
	cfg.Targets = nil // the file is authoritative on target types once present

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ProjectFile, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "root":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Root = s
					}
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Name = s
					}
				}
			}
		case "target":
			tc, err := parseTargetNode(n)
			if err != nil {
				return nil, err
			}
			cfg.Targets = append(cfg.Targets, tc)
		case "performance":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.WatchDebounceMs = v
					}
				case "always_scan_fs":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Performance.AlwaysScanFS = b
					}
				}
			}
		case "persistence":
			for _, cn := range n.Children {
				if nodeName(cn) == "state_path" {
					if s, ok := firstStringArg(cn); ok {
						cfg.Persistence.StatePath = s
					}
				}
			}
		}
	}

	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("%s declares no target blocks", ProjectFile)
	}
	return cfg, nil
}

// parseTargetNode parses one `target "typeId" { ... }` block (§1a: a target
// type is a typeId plus the module-build flag).
func parseTargetNode(n *document.Node) (TargetConfig, error) {
	typeID, ok := firstStringArg(n)
	if !ok {
		return TargetConfig{}, fmt.Errorf("target block missing its type id argument")
	}
	tc := TargetConfig{TypeID: typeID, IsModuleBuild: true}

	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "module_build":
			if b, ok := firstBoolArg(cn); ok {
				tc.IsModuleBuild = b
			}
		case "root":
			dir, ok := firstStringArg(cn)
			if !ok {
				continue
			}
			generated, _ := propBool(cn, "generated")
			tc.Roots = append(tc.Roots, RootConfig{Dir: dir, Generated: generated})
		case "include":
			tc.Include = append(tc.Include, collectStringArgs(cn)...)
		case "exclude":
			tc.Exclude = append(tc.Exclude, collectStringArgs(cn)...)
		}
	}
	return tc, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func propBool(n *document.Node, key string) (bool, bool) {
	if n.Properties == nil {
		return false, false
	}
	if v, ok := n.Properties[key]; ok {
		b, ok2 := v.Value.(bool)
		return b, ok2
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
