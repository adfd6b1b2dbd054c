package stub

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/jrpc/pkg/filemonitor"
	"github.com/sjzar/jrpc/pkg/jsonrpc"
)

// Fixture 预置的应答，Result 与 Error 有且仅有一个
type Fixture struct {
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *jsonrpc.RPCError `json:"error,omitempty"`
}

// Fixtures 方法名到预置应答的映射
type Fixtures map[string]Fixture

// ParseFixtures 解析预置应答文件，格式如
//
//	{"add": {"result": 3}, "fail": {"error": {"code": -32000, "message": "busy"}}}
func ParseFixtures(data []byte) (Fixtures, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	fixtures := make(Fixtures, len(raw))
	for method, fields := range raw {
		result, hasResult := fields["result"]
		errRaw, hasError := fields["error"]
		switch {
		case hasResult && hasError:
			return nil, fmt.Errorf("fixture %q: result and error are exclusive", method)
		case hasResult:
			fixtures[method] = Fixture{Result: result}
		case hasError:
			var rpcErr jsonrpc.RPCError
			if err := json.Unmarshal(errRaw, &rpcErr); err != nil || rpcErr.Message == "" {
				return nil, fmt.Errorf("fixture %q: error needs a code and a message", method)
			}
			fixtures[method] = Fixture{Error: &rpcErr}
		default:
			return nil, fmt.Errorf("fixture %q: needs a result or an error", method)
		}
	}
	return fixtures, nil
}

// LoadFixtures 从 path 加载预置应答并替换当前内容
// 加载失败时保留原有内容
func (s *Stub) LoadFixtures(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fixtures, err := ParseFixtures(data)
	if err != nil {
		return err
	}
	s.SetFixtures(fixtures)
	log.Info().Str("path", path).Int("methods", len(fixtures)).Msg("fixtures loaded")
	return nil
}

func (s *Stub) SetFixtures(fixtures Fixtures) {
	s.fixtures.Store(&fixtures)
}

// WatchFixtures 加载 path，并在文件变化时通过 fm 重新加载
func (s *Stub) WatchFixtures(fm *filemonitor.FileMonitor, path string) error {
	if err := s.LoadFixtures(path); err != nil {
		return err
	}
	group, err := filemonitor.NewFileGroupForFile("fixtures", path)
	if err != nil {
		return err
	}
	group.AddCallback(func(event fsnotify.Event) error {
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			if _, err := os.Stat(path); err != nil {
				log.Warn().Str("path", path).Msg("fixtures file removed, keeping the last loaded fixtures")
				return nil
			}
		}
		return s.LoadFixtures(path)
	})
	return fm.AddGroup(group)
}
