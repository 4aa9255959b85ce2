package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Config 是单条 Pipeline 的配置结构（支持 YAML/JSON）。
type Config struct {
	Pipeline Spec `yaml:"pipeline" json:"pipeline"`
}

// Spec 描述一条 Pipeline：名称与有序的 Node 列表。
type Spec struct {
	Name  string       `yaml:"name" json:"name"`
	Nodes []NodeConfig `yaml:"nodes" json:"nodes"`
}

// File 是多条 Pipeline 的配置文件，按名称（策略名）区分。
type File struct {
	Pipelines []Spec `yaml:"pipelines" json:"pipelines"`
}

// NodeConfig 是单个 Node 的配置。
type NodeConfig struct {
	Type   string         `yaml:"type" json:"type"`     // recall.fanout / filter / rerank.topn 等
	Config map[string]any `yaml:"config" json:"config"` // Node 特定配置
}

// LoadFromYAML 从 YAML 文件加载 Pipeline 配置。
func LoadFromYAML(path string) (*Config, error) {
	var cfg Config
	if err := decodeFile(path, yaml.Unmarshal, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载 Pipeline 配置。
func LoadFromJSON(path string) (*Config, error) {
	var cfg Config
	if err := decodeFile(path, json.Unmarshal, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile 加载多 Pipeline 配置文件，按扩展名选择 JSON 或 YAML。
func LoadFile(path string) (*File, error) {
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	var f File
	if err := decodeFile(path, unmarshal, &f); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(f.Pipelines))
	for _, s := range f.Pipelines {
		if s.Name == "" {
			return nil, fmt.Errorf("pipeline without name in %s", path)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("duplicate pipeline %q in %s", s.Name, path)
		}
		seen[s.Name] = struct{}{}
	}
	return &f, nil
}

func decodeFile(path string, unmarshal func([]byte, any) error, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if err := unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// BuildPipeline 根据配置构建 Pipeline（需要 NodeFactory 注册 Node 构建器）。
// 注意：factory 应该在独立的 config 包中，避免循环依赖。
func (c *Config) BuildPipeline(factory *NodeFactory) (*Pipeline, error) {
	return c.Pipeline.Build(factory)
}

// Build 按顺序构建每个 Node。
func (s Spec) Build(factory *NodeFactory) (*Pipeline, error) {
	nodes := make([]Node, 0, len(s.Nodes))
	for _, nc := range s.Nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node %s: %w", nc.Type, err)
		}
		nodes = append(nodes, node)
	}
	return &Pipeline{Name: s.Name, Nodes: nodes}, nil
}

// NodeBuilder 根据 map 配置构建 Node。
type NodeBuilder func(map[string]any) (Node, error)

// NodeFactory 用于根据配置构建 Node 实例。
type NodeFactory struct {
	builders map[string]NodeBuilder
}

func NewNodeFactory() *NodeFactory {
	return &NodeFactory{
		builders: make(map[string]NodeBuilder),
	}
}

// Register 注册 Node 构建器。
func (f *NodeFactory) Register(nodeType string, builder NodeBuilder) {
	f.builders[nodeType] = builder
}

// Build 根据类型和配置构建 Node。
func (f *NodeFactory) Build(nodeType string, config map[string]any) (Node, error) {
	builder, ok := f.builders[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	return builder(config)
}
