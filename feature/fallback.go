package feature

// 空/短历史的默认值约定：
//   - 0 条流水：event_count=0，recency_days 取哨兵值（视为“从未购买”），
//     其余统计全部为 0
//   - 1 条流水：间隔类与价格变化类特征为 0（无法成对计算），
//     recency/价格均值等按实际值计算
//
// 约定的目的只有一个：任何历史长度都产出同形状向量，绝不为 nil/缺位。
const defaultRecencySentinelDays = 365

// emptyHistoryValues 返回零历史客户的基础特征段。
func emptyHistoryValues(recencySentinel float64) []float64 {
	values := make([]float64, len(baseFeatureNames))
	values[1] = recencySentinel // recency_days
	return values
}
