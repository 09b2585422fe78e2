package nodes

// Graph node keys.
const (
	NodeSessionLoader     = "SessionLoader"
	NodeConfirmation      = "Confirmation"
	NodeResponseAssembler = "ResponseAssembler"
	NodeResponseChatModel = "ResponseChatModel"
	NodeToolExecutor      = "ToolExecutor"
	NodeSuspend           = "Suspend"
)
