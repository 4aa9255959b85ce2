// Package engine 是推荐引擎的查询门面：从交互日志与目录构建模型快照并原子发布，
// 再通过按策略组装的 Pipeline 回答查询。所有查询返回带状态码的 Result，不返回 error。
package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rushteam/playrec/catalog"
	"github.com/rushteam/playrec/config"
	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
	"github.com/rushteam/playrec/model"
	"github.com/rushteam/playrec/pipeline"
	"github.com/rushteam/playrec/store"
)

// Engine 持有当前模型快照与各策略的 Pipeline。并发安全：
// 查询只读一次快照指针，Build 在后台构建完成后整体替换。
type Engine struct {
	settings *config.Settings
	logger   zerolog.Logger

	kv       core.KeyValueStore
	ownStore bool

	snap    atomic.Pointer[model.Set]
	buildMu sync.Mutex

	pipelines map[string]*pipeline.Pipeline

	registerer prometheus.Registerer
	metrics    *metrics
}

// Option 配置 Engine。
type Option func(*Engine)

// WithLogger 使用调用方的 logger。
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStore 指定热度导出与 recall.hot 使用的存储，调用方负责关闭。
func WithStore(kv core.KeyValueStore) Option {
	return func(e *Engine) { e.kv = kv }
}

// WithRegisterer 把引擎指标注册到 reg（例如 prometheus.DefaultRegisterer）。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.registerer = reg }
}

// New 创建引擎，settings 为 nil 时使用默认值。未指定存储时使用内存存储。
func New(settings *config.Settings, opts ...Option) (*Engine, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(settings.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	e := &Engine{
		settings: settings,
		logger:   zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "playrec").Logger()
	e.metrics = newMetrics(e.registerer)

	if e.kv == nil {
		e.kv = store.NewMemoryStore()
		e.ownStore = true
	}

	e.pipelines, err = e.buildPipelines()
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// Open 按 settings.Redis 连接存储（地址为空时用内存存储）后创建引擎，Close 时关闭该存储。
func Open(ctx context.Context, settings *config.Settings, opts ...Option) (*Engine, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	kv, err := store.Open(ctx, settings.Redis.Addr, settings.Redis.DB)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeUnavailable, err.Error())
	}
	e, err := New(settings, append(opts, WithStore(kv))...)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	e.ownStore = true
	return e, nil
}

// Close 关闭引擎自己创建的存储。
func (e *Engine) Close() error {
	if e.ownStore && e.kv != nil {
		return e.kv.Close()
	}
	return nil
}

// Settings 返回引擎使用的配置。
func (e *Engine) Settings() *config.Settings { return e.settings }

// Build 从完整快照构建全部模型并原子发布。任何一步失败都返回错误，
// 此前发布的快照继续提供服务。
func (e *Engine) Build(ctx context.Context, records []core.InteractionRecord, profiles []core.ItemProfile) (err error) {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	start := time.Now()
	defer func() { e.metrics.observeBuild(err, start) }()
	log := e.logger.With().Int("records", len(records)).Int("profiles", len(profiles)).Logger()

	m, pop, err := interaction.Aggregate(records)
	if err != nil {
		log.Error().Err(err).Msg("aggregate interactions failed")
		return fmt.Errorf("build: %w", err)
	}
	log.Info().
		Int("users", len(m.Users())).
		Int("items", len(m.Items())).
		Int("entries", m.Len()).
		Int("skipped", m.Skipped()).
		Msg("interactions aggregated")

	cat := catalog.New(profiles)
	if cat.Duplicates() > 0 {
		log.Info().Int("duplicates", cat.Duplicates()).Msg("duplicate catalog names collapsed")
	}

	phase := time.Now()
	content, err := model.FitContent(ctx, cat)
	if err != nil {
		log.Error().Err(err).Msg("content model failed")
		return fmt.Errorf("build: %w", err)
	}
	log.Info().Int("items", content.Len()).Dur("took", time.Since(phase)).Msg("content model fitted")

	// 日志与目录没有交集时不训练隐因子模型，mf 召回按冷启动处理
	joined := m.Restrict(cat.Resolve)
	var mf *model.LatentFactor
	if joined.Len() == 0 {
		log.Warn().Msg("no played item matches the catalog, latent factor model skipped")
	} else {
		phase = time.Now()
		mf, err = model.FitLatentFactor(ctx, joined, e.settings.MF)
		if err != nil {
			log.Error().Err(err).Msg("latent factor model failed")
			return fmt.Errorf("build: %w", err)
		}
		log.Info().
			Int("entries", joined.Len()).
			Float64("rmse", mf.RMSE()).
			Dur("took", time.Since(phase)).
			Msg("latent factor model fitted")
	}

	var version uint64 = 1
	if prev := e.snap.Load(); prev != nil {
		version = prev.Version + 1
	}
	set := &model.Set{
		Version:    version,
		BuiltAt:    time.Now(),
		Matrix:     m,
		Popularity: pop,
		Catalog:    cat,
		Joined:     joined,
		CF:         model.NewItemCF(m, pop),
		Content:    content,
		MF:         mf,
		Names:      catalog.MergeNames(cat.Names(), m.KnownItems()),
	}
	e.snap.Store(set)
	e.metrics.version.Set(float64(version))
	e.metrics.items.WithLabelValues("catalog").Set(float64(cat.Len()))
	e.metrics.items.WithLabelValues("interactions").Set(float64(len(m.Items())))

	log.Info().Uint64("version", version).Dur("took", time.Since(start)).Msg("models published")
	return nil
}

// Ready 报告是否已有可用的模型快照。
func (e *Engine) Ready() bool { return e.snap.Load() != nil }

// Version 返回当前快照版本，未构建时为 0。
func (e *Engine) Version() uint64 {
	if s := e.snap.Load(); s != nil {
		return s.Version
	}
	return 0
}

// ListItems 返回目录与交互日志中全部物品名称（去重、排序）。
func (e *Engine) ListItems() []string {
	if s := e.snap.Load(); s != nil {
		return s.Names
	}
	return nil
}

// SearchItems 按子串（大小写不敏感）搜索物品名称，limit <= 0 时使用配置的默认条数。
func (e *Engine) SearchItems(query string, limit int) []string {
	s := e.snap.Load()
	if s == nil {
		return nil
	}
	if limit <= 0 {
		limit = e.settings.Query.SearchLimit
	}
	return catalog.Search(s.Names, query, limit)
}

// TopByMeanEngagement 返回平均时长最高的 n 个物品，n < 0 返回全部。
func (e *Engine) TopByMeanEngagement(n int) []interaction.Ranked {
	if s := e.snap.Load(); s != nil {
		return s.Popularity.TopByMean(n)
	}
	return nil
}

// TopByPlayCount 返回玩家数最多的 n 个物品，n < 0 返回全部。
func (e *Engine) TopByPlayCount(n int) []interaction.Ranked {
	if s := e.snap.Load(); s != nil {
		return s.Popularity.TopByCount(n)
	}
	return nil
}

// PublishPopularity 把当前热度统计写入 kv；kv 为 nil 时写入引擎自己的存储。
func (e *Engine) PublishPopularity(ctx context.Context, kv core.KeyValueStore) error {
	s := e.snap.Load()
	if s == nil {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeUnavailable, "engine: models not built")
	}
	if kv == nil {
		kv = e.kv
	}
	start := time.Now()
	if err := s.Popularity.Publish(ctx, kv, e.settings.Popularity.Prefix); err != nil {
		e.logger.Error().Err(err).Str("store", kv.Name()).Msg("publish popularity failed")
		return err
	}
	e.logger.Info().
		Str("store", kv.Name()).
		Str("prefix", e.settings.Popularity.Prefix).
		Int("items", s.Popularity.Len()).
		Dur("took", time.Since(start)).
		Msg("popularity published")
	return nil
}
