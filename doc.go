// Package playrec 是游戏推荐引擎：从游玩日志与游戏目录构建邻域、内容与隐因子模型，
// 再通过可配置的 Pipeline 回答推荐查询。
//
// 设计要点：
// - Snapshot-first: 一次 Build 产出不可变的模型快照并原子发布，查询全程只看同一个快照
// - Pipeline-first: 每个推荐策略都是 Node 串联（Recall → Filter → ReRank → PostProcess）
// - Labels-first: recall_source 等 labels 全链路透传，用于融合打分与推荐理由
//
// 入口是 engine 包；本包只提供核心抽象的别名。
package playrec

import "github.com/rushteam/playrec/pipeline"

type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
