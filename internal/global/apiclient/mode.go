package apiclient

import (
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Mode 仓库的数据来源：本地存储或远程 API
type Mode int32

const (
	ModeLocal Mode = iota
	ModeRemote
)

var current atomic.Int32

func (m Mode) String() string {
	if m == ModeRemote {
		return "remote"
	}
	return "local"
}

// ParseMode 兼容旧配置里的 localStorage / api 写法
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "local", "localstorage":
		return ModeLocal, nil
	case "remote", "api":
		return ModeRemote, nil
	}
	return ModeLocal, errors.Errorf("unknown api mode %q", s)
}

// SetMode 切换进程内所有仓库的传输方式
func SetMode(m Mode) {
	current.Store(int32(m))
}

func CurrentMode() Mode {
	return Mode(current.Load())
}

func IsRemote() bool {
	return CurrentMode() == ModeRemote
}
