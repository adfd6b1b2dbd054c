package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   = "(dev)"
	Commit    = ""
	buildInfo = debug.BuildInfo{}
)

func init() {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	buildInfo = *bi
	if len(bi.Main.Version) > 0 && bi.Main.Version != "(devel)" {
		Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			Commit = s.Value[:7]
		}
	}
}

// GetMore returns a one-line version summary, or the module listing of the
// binary when mod is set.
func GetMore(mod bool) string {
	if mod {
		info := buildInfo.String()
		if len(info) > 0 {
			return fmt.Sprintf("\t%s\n", strings.ReplaceAll(strings.TrimSuffix(info, "\n"), "\n", "\n\t"))
		}
	}
	v := Version
	if Commit != "" {
		v += " (" + Commit + ")"
	}
	return fmt.Sprintf("version %s %s %s/%s\n", v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
