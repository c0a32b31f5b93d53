package vanbus

import (
	"fmt"
	"runtime/debug"
)

/*------------------------------------------------------------------
 *
 * Purpose:   	Identify the running build.
 *
 * Description: vanmon --version prints one line: the module version when built
 *		from a tagged release, otherwise the VCS revision the Go
 *		toolchain stamped into the binary.
 *
 *---------------------------------------------------------------*/

func version_string() string {
	var bi, ok = debug.ReadBuildInfo()
	if !ok {
		return "vanhound (unknown build)"
	}

	if v := bi.Main.Version; v != "" && v != "(devel)" {
		return "vanhound " + v
	}

	var revision string
	var dirty bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if revision == "" {
		return "vanhound (devel)"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if dirty {
		return fmt.Sprintf("vanhound (devel, %s, modified)", revision)
	}
	return fmt.Sprintf("vanhound (devel, %s)", revision)
}
