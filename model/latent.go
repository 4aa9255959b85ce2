package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/interaction"
)

// LatentFactorConfig 是隐因子模型的超参数。
type LatentFactorConfig struct {
	Factors   int     `koanf:"factors" validate:"min=1,max=1000"`
	Epochs    int     `koanf:"epochs" validate:"min=1,max=1000"`
	LearnRate float64 `koanf:"learn_rate" validate:"gt=0,lte=1"`
	Reg       float64 `koanf:"reg" validate:"gte=0"`
	InitStd   float64 `koanf:"init_std" validate:"gte=0"`
	Seed      uint64  `koanf:"seed"`
}

// DefaultLatentFactorConfig 返回默认超参数：100 维，20 轮，学习率 0.005，正则 0.02。
func DefaultLatentFactorConfig() LatentFactorConfig {
	return LatentFactorConfig{
		Factors:   100,
		Epochs:    20,
		LearnRate: 0.005,
		Reg:       0.02,
		InitStd:   0.1,
		Seed:      42,
	}
}

// LatentFactor 是带偏置的矩阵分解模型，用 SGD 只在观测值上最小化重构误差。
//
// 训练时观测值按矩阵最大值缩放到 [0, 1]，预测时还原并裁剪到 [0, max]。
type LatentFactor struct {
	matrix *interaction.Matrix
	scale  float64

	globalMean float64
	userIndex  map[string]int
	itemIndex  map[string]int
	items      []string
	userBias   []float64
	itemBias   []float64
	userVec    [][]float64
	itemVec    [][]float64

	// Loss 是最后一轮的训练误差平方和（缩放后）
	Loss float64
}

// FitLatentFactor 在矩阵上训练隐因子模型。每轮检查一次 ctx；
// 误差出现 NaN/Inf 时中止并返回内部错误。
func FitLatentFactor(ctx context.Context, m *interaction.Matrix, cfg LatentFactorConfig) (*LatentFactor, error) {
	if cfg.Factors <= 0 || cfg.Epochs <= 0 || cfg.LearnRate <= 0 || cfg.Reg < 0 {
		return nil, core.NewDomainError(core.ModuleMF, core.ErrorCodeInvalidInput,
			fmt.Sprintf("mf: invalid config %+v", cfg))
	}
	entries := m.Entries()
	if len(entries) == 0 || m.MaxAmount() <= 0 {
		return nil, core.ErrEmptyDataset(core.ModuleMF)
	}

	users, items := m.Users(), m.Items()
	lf := &LatentFactor{
		matrix:    m,
		scale:     m.MaxAmount(),
		userIndex: make(map[string]int, len(users)),
		itemIndex: make(map[string]int, len(items)),
		items:     items,
		userBias:  make([]float64, len(users)),
		itemBias:  make([]float64, len(items)),
		userVec:   make([][]float64, len(users)),
		itemVec:   make([][]float64, len(items)),
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	for i, u := range users {
		lf.userIndex[u] = i
		lf.userVec[i] = gaussian(rng, cfg.Factors, cfg.InitStd)
	}
	for i, it := range items {
		lf.itemIndex[it] = i
		lf.itemVec[i] = gaussian(rng, cfg.Factors, cfg.InitStd)
	}

	type obs struct {
		u, i int
		r    float64
	}
	data := make([]obs, len(entries))
	var sum float64
	for k, e := range entries {
		r := e.Amount / lf.scale
		data[k] = obs{u: lf.userIndex[e.UserID], i: lf.itemIndex[e.ItemID], r: r}
		sum += r
	}
	lf.globalMean = sum / float64(len(data))

	lr, reg := cfg.LearnRate, cfg.Reg
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var loss float64
		for _, o := range data {
			pu, qi := lf.userVec[o.u], lf.itemVec[o.i]
			diff := o.r - (lf.globalMean + lf.userBias[o.u] + lf.itemBias[o.i] + dot(pu, qi))
			loss += diff * diff

			lf.userBias[o.u] += lr * (diff - reg*lf.userBias[o.u])
			lf.itemBias[o.i] += lr * (diff - reg*lf.itemBias[o.i])
			for f := range pu {
				puf, qif := pu[f], qi[f]
				pu[f] += lr * (diff*qif - reg*puf)
				qi[f] += lr * (diff*puf - reg*qif)
			}
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return nil, core.NewDomainError(core.ModuleMF, core.ErrorCodeInternalError,
				fmt.Sprintf("mf: training diverged at epoch %d", epoch+1))
		}
		lf.Loss = loss
	}
	return lf, nil
}

func gaussian(rng *rand.Rand, n int, std float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64() * std
	}
	return v
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// HasUser 判断用户是否有训练观测。
func (lf *LatentFactor) HasUser(userID string) bool {
	_, ok := lf.userIndex[userID]
	return ok
}

// Predict 预测用户对物品的参与度（原始单位），已裁剪到 [0, max]。
// 没有训练观测的用户或物品返回 UnknownUser / UnknownItem。
func (lf *LatentFactor) Predict(userID, itemID string) (float64, error) {
	u, ok := lf.userIndex[userID]
	if !ok {
		return 0, core.ErrUnknownUser(core.ModuleMF, userID)
	}
	i, ok := lf.itemIndex[itemID]
	if !ok {
		return 0, core.ErrUnknownItem(core.ModuleMF, itemID)
	}
	return lf.predict(u, i), nil
}

func (lf *LatentFactor) predict(u, i int) float64 {
	est := lf.globalMean + lf.userBias[u] + lf.itemBias[i] + dot(lf.userVec[u], lf.itemVec[i])
	return math.Max(0, math.Min(1, est)) * lf.scale
}

// Recommend 对用户未玩过的全部物品预测参与度，返回最高的 k 个（k <= 0 表示不限）。
// 预测值降序，同分按物品 ID 升序。
func (lf *LatentFactor) Recommend(userID string, k int) ([]Neighbor, error) {
	u, ok := lf.userIndex[userID]
	if !ok {
		return nil, core.ErrUnknownUser(core.ModuleMF, userID)
	}
	played := lf.matrix.UserItems(userID)
	out := make([]Neighbor, 0, len(lf.items))
	for i, item := range lf.items {
		if _, ok := played[item]; ok {
			continue
		}
		out = append(out, Neighbor{ItemID: item, Score: lf.predict(u, i)})
	}
	sortByScore(out)
	return truncate(out, k), nil
}

// RMSE 返回在训练观测上的均方根误差（原始单位）。
func (lf *LatentFactor) RMSE() float64 {
	var sq float64
	entries := lf.matrix.Entries()
	for _, e := range entries {
		p, _ := lf.Predict(e.UserID, e.ItemID)
		d := p - e.Amount
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(entries)))
}
