package workflow

// CheckSufficiency 充分性门控：相关片段数不少于下限时进入生成，否则走数据不足终止。
func CheckSufficiency(relevantCount, minRelevantDocs int) NodeID {
	if relevantCount >= minRelevantDocs {
		return NodeGenerate
	}
	return NodeEndInsufficient
}

// CheckValidation 重试门控。
//
// 已溯源直接成功；未溯源且 retryCount < maxRetries 时重新生成；否则以校验失败终止。
// 路由到 NodeRegenerate 时必有 retryCount < maxRetries，循环因此有界。
func CheckValidation(grounded bool, retryCount, maxRetries int) NodeID {
	switch {
	case grounded:
		return NodeEndSuccess
	case retryCount < maxRetries:
		return NodeRegenerate
	default:
		return NodeEndFailed
	}
}
