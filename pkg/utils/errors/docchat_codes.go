package errors

// docchat service code: 30 (business service range 20-79)
// Error code format: AABBCCC
// - AA: 30 (docchat service)
// - BB: category code
// - CCC: sequence

var (
	// Request/validation errors (category 01). These are user correctable
	// and surface as HTTP 400 with the message verbatim in the error body.
	ErrMissingContent = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 1), 400, "No file, content, or URL provided", "未提供文件、内容或 URL"))
	ErrNoFileUploaded = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 2), 400, "No file uploaded", "未上传文件"))
	ErrInvalidURL     = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 3), 400, "Invalid URL format", "URL 格式无效"))
	ErrMissingParams  = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 4), 400, "Question and collectionName are required", "question 和 collectionName 为必填项"))

	// Content-dependent errors (category 01). Still HTTP 400: the user
	// should try different input, the service itself is healthy.
	ErrExtractionFailed     = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 10), 400, "Could not extract content from URL", "无法从 URL 提取内容"))
	ErrNoSubstantialContent = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 11), 400, "No substantial content found after processing", "处理后未找到有效内容"))
	ErrNoValidVectors       = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 12), 400, "No valid vectors created", "未能生成有效向量"))
	ErrDimensionMismatch    = Register(New(MakeCode(ServiceDocChat, CategoryRequest, 13), 400, "Embedding dimension does not match the existing collection", "向量维度与已有集合不匹配"))

	// Infrastructure errors (categories 07/08/10). Transient from the user's
	// point of view, surfaced as user-readable sentences.
	ErrRetrievalFailed        = Register(New(MakeCode(ServiceDocChat, CategoryDatabase, 1), 500, "Unable to search your document collection. Please try again.", "无法检索您的文档集合，请重试"))
	ErrCollectionDeleteFailed = Register(New(MakeCode(ServiceDocChat, CategoryDatabase, 2), 500, "Failed to delete collection", "删除集合失败"))
	ErrQuestionEmbedFailed    = Register(New(MakeCode(ServiceDocChat, CategoryInternal, 1), 500, "Unable to process your question. Please try rephrasing it.", "无法处理您的问题，请尝试换一种问法"))
	ErrIngestFailed           = Register(New(MakeCode(ServiceDocChat, CategoryInternal, 2), 500, "Upload failed", "上传失败"))
	ErrUnhandledFailure       = Register(New(MakeCode(ServiceDocChat, CategoryInternal, 3), 500, "An unexpected error occurred while processing your request.", "处理请求时发生意外错误"))
	ErrProviderUnavailable    = Register(New(MakeCode(ServiceDocChat, CategoryNetwork, 1), 503, "AI service temporarily unavailable. Please try again in a moment.", "AI 服务暂时不可用，请稍后重试"))

	// Timeout errors (category 11). Kept at 408 so browser clients retry.
	ErrQueryTimeout = Register(New(MakeCode(ServiceDocChat, CategoryTimeout, 1), 408, "Query timeout: the request took too long to process. Please try again or simplify your question.", "查询超时，请重试或简化您的问题"))

	// Session errors (category 09).
	ErrSessionLoadFailed = Register(New(MakeCode(ServiceDocChat, CategoryCache, 1), 500, "Failed to load session state", "加载会话状态失败"))
	ErrSessionSaveFailed = Register(New(MakeCode(ServiceDocChat, CategoryCache, 2), 500, "Failed to save session state", "保存会话状态失败"))

	// Stats errors.
	ErrStatsUnavailable = Register(New(MakeCode(ServiceDocChat, CategoryInternal, 4), 500, "Statistics unavailable", "统计信息不可用"))
)
