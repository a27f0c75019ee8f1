package errCode

// ErrCode 错误分类, 按处理方式分三组:
// 输入校验(立即返回), 数值不收敛(单元级跳过), 数据不足(聚合级跳过)
type ErrCode int

const (
	UNKNOWN ErrCode = iota

	// 输入校验
	INVALID_VALUE
	EMPTY_VALUE
	INVALID_BLOCK_COUNT
	INVALID_LAG

	// 数值
	NON_FINITE
	FIT_DID_NOT_CONVERGE
	PEAK_FIT_FAILED

	// 数据充分性
	INSUFFICIENT_SIZES
	NO_BRACKET
	CROSSING_NOT_FOUND

	// io
	IO_ERROR
)

func (c ErrCode) String() string {
	switch c {
	case INVALID_VALUE:
		return "InvalidValue"
	case EMPTY_VALUE:
		return "EmptyValue"
	case INVALID_BLOCK_COUNT:
		return "InvalidBlockCount"
	case INVALID_LAG:
		return "InvalidLag"
	case NON_FINITE:
		return "NonFinite"
	case FIT_DID_NOT_CONVERGE:
		return "FitDidNotConverge"
	case PEAK_FIT_FAILED:
		return "PeakFitFailed"
	case INSUFFICIENT_SIZES:
		return "InsufficientSizes"
	case NO_BRACKET:
		return "NoBracket"
	case CROSSING_NOT_FOUND:
		return "CrossingNotFound"
	case IO_ERROR:
		return "IOError"
	default:
		return "Unknown"
	}
}

// Recoverable 数值不收敛和数据不足可以跳过当前单元继续处理
func (c ErrCode) Recoverable() bool {
	switch c {
	case FIT_DID_NOT_CONVERGE, PEAK_FIT_FAILED, NON_FINITE,
		INSUFFICIENT_SIZES, NO_BRACKET, CROSSING_NOT_FOUND:
		return true
	}
	return false
}
