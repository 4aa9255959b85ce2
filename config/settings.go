package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/model"
)

// EnvPrefix 是所有环境变量的前缀；PLAYREC_CONFIG 指定配置文件路径。
const (
	EnvPrefix     = "PLAYREC_"
	ConfigPathEnv = "PLAYREC_CONFIG"
)

// Settings 是引擎的运行参数。加载顺序：默认值 < YAML 文件 < 环境变量。
type Settings struct {
	CF         CFSettings               `koanf:"cf"`
	Hybrid     HybridSettings           `koanf:"hybrid"`
	MF         model.LatentFactorConfig `koanf:"mf"`
	Query      QuerySettings            `koanf:"query"`
	Popularity PopularitySettings       `koanf:"popularity"`
	Redis      RedisSettings            `koanf:"redis"`
	Log        LogSettings              `koanf:"log"`

	// Pipelines 可选，策略 pipeline 的 YAML/JSON 文件，覆盖内置默认
	Pipelines string `koanf:"pipelines"`
}

type CFSettings struct {
	// MinSupport play_count <= MinSupport 的物品不参与邻域推荐
	MinSupport int `koanf:"min_support" validate:"gte=0"`
}

// HybridSettings 是混合推荐的候选数与各来源权重。
type HybridSettings struct {
	ContentCandidates int     `koanf:"content_candidates" validate:"min=1,max=1000"`
	CollabCandidates  int     `koanf:"collab_candidates" validate:"min=1,max=1000"`
	ContentWeight     float64 `koanf:"content_weight" validate:"gte=0"`
	CollabWeight      float64 `koanf:"collab_weight" validate:"gte=0"`
}

type QuerySettings struct {
	DefaultTopN int `koanf:"default_top_n" validate:"min=1,max=1000"`
	SearchLimit int `koanf:"search_limit" validate:"min=1,max=1000"`
	// Expr 可选的 CEL 表达式，为 true 的结果才会返回
	Expr string `koanf:"expr"`
}

type PopularitySettings struct {
	Prefix string `koanf:"prefix" validate:"required"`
}

type RedisSettings struct {
	// Addr 为空时使用内存存储
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
	DB   int    `koanf:"db" validate:"gte=0,lte=15"`
}

type LogSettings struct {
	Level string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
}

// DefaultSettings 返回内置默认值。
func DefaultSettings() *Settings {
	return &Settings{
		CF: CFSettings{MinSupport: model.DefaultMinSupport},
		Hybrid: HybridSettings{
			ContentCandidates: 10,
			CollabCandidates:  10,
			ContentWeight:     1.0,
			CollabWeight:      1.5,
		},
		MF: model.DefaultLatentFactorConfig(),
		Query: QuerySettings{
			DefaultTopN: 10,
			SearchLimit: 10,
		},
		Popularity: PopularitySettings{Prefix: "playrec:popularity"},
		Log:        LogSettings{Level: "info"},
	}
}

// LoadSettings 加载配置。path 为空时读取 PLAYREC_CONFIG，仍为空则只用默认值与环境变量。
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// envMappings 把环境变量（去掉前缀、小写）映射到配置路径，未列出的变量忽略。
var envMappings = map[string]string{
	"cf_min_support":            "cf.min_support",
	"hybrid_content_candidates": "hybrid.content_candidates",
	"hybrid_collab_candidates":  "hybrid.collab_candidates",
	"hybrid_content_weight":     "hybrid.content_weight",
	"hybrid_collab_weight":      "hybrid.collab_weight",
	"mf_factors":                "mf.factors",
	"mf_epochs":                 "mf.epochs",
	"mf_learn_rate":             "mf.learn_rate",
	"mf_reg":                    "mf.reg",
	"mf_init_std":               "mf.init_std",
	"mf_seed":                   "mf.seed",
	"query_top_n":               "query.default_top_n",
	"query_search_limit":        "query.search_limit",
	"query_expr":                "query.expr",
	"popularity_prefix":         "popularity.prefix",
	"redis_addr":                "redis.addr",
	"redis_db":                  "redis.db",
	"log_level":                 "log.level",
	"pipelines":                 "pipelines",
}

func envTransform(key string) string {
	key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
	return envMappings[key]
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate 校验取值范围，错误为 INVALID_INPUT。
func (s *Settings) Validate() error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "settings: "+err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "settings: "+strings.Join(msgs, "; "))
}
