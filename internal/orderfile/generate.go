package orderfile

import (
	"time"

	"golang.org/x/exp/rand"
	"tickbook.com/internal/matching"
)

type GenOptions struct {
	MinPrice int64 // 分
	MaxPrice int64
	MinQty   int64
	MaxQty   int64
	Seed     uint64 // 0 表示用当前时间
}

// DefaultGenOptions 价格 1.00 ~ 1000.00，数量 1 ~ 1000
func DefaultGenOptions() GenOptions {
	return GenOptions{MinPrice: 100, MaxPrice: 100_000, MinQty: 1, MaxQty: 1000}
}

// Generate 均匀随机生成 n 笔订单，ID 从 1 开始
func Generate(n int, opt GenOptions) []matching.Order {
	def := DefaultGenOptions()
	if opt.MinPrice <= 0 || opt.MaxPrice < opt.MinPrice {
		opt.MinPrice, opt.MaxPrice = def.MinPrice, def.MaxPrice
	}
	if opt.MinQty <= 0 || opt.MaxQty < opt.MinQty {
		opt.MinQty, opt.MaxQty = def.MinQty, def.MaxQty
	}
	seed := opt.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r := rand.New(rand.NewSource(seed))

	priceSpan := opt.MaxPrice - opt.MinPrice + 1
	qtySpan := opt.MaxQty - opt.MinQty + 1
	orders := make([]matching.Order, n)
	for i := range orders {
		side := matching.Sell
		if r.Intn(2) == 1 {
			side = matching.Buy
		}
		orders[i] = matching.Order{
			ID:    uint64(i + 1),
			Side:  side,
			Price: opt.MinPrice + r.Int63n(priceSpan),
			Qty:   opt.MinQty + r.Int63n(qtySpan),
		}
	}
	return orders
}
