package proposal

// User-facing transcript lines and progress labels.
const (
	ProgressSelect  = "Select Market Suggestion"
	ProgressEditing = "Editing Market Proposal"
	ProgressCustom  = "Creating Custom Market"
	ProgressCreated = "Market Created!"

	MsgCustomStart   = "Let's create your custom market! Fill in the details below and I'll help you create a prediction market."
	MsgGenericError  = "Something went wrong. Please try again."
	MsgNetworkError  = "Network error. Please check your connection and try again."
	MsgConnectWallet = "Please connect your wallet first."

	warningPrefix     = "⚠️ "
	customContext     = "Custom market"
	confirmReply      = "confirm"
	everythingLooksOK = "Everything looks good"
)

// Backend step numbers mirrored into Conversation.BackendStep.
const (
	stepSearch  = 0
	stepSelect  = 1
	stepEdit    = 2
	stepCreated = 3
)
