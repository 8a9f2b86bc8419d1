package model

import (
	"fmt"
	"slices"
	"sync"
)

// Factory 模型构造函数
type Factory func() Subsystem

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register 注册模型, 重复注册 panic
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Errorf("model: %s already registered", name))
	}
	registry[name] = f
}

// New 按名称构建模型
func New(name string) (Subsystem, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return f(), nil
}

// Names 已注册模型名称(排序)
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
