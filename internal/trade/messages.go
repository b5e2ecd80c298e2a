package trade

// Status lines emitted by the pipelines.
const (
	StatusConnectWallet       = "Please connect your wallet first."
	StatusBusy                = "Another transaction is in progress."
	StatusInsufficientBalance = "Insufficient USDT balance"
	StatusNoPrice             = "Could not fetch market price"
	StatusApproving           = "Approving USDT..."
	StatusApproved            = "USDT approved!"
	StatusApprovalFailed      = "Approval failed."
	StatusApprovalNotApplied  = "Approval not successful. Try again."
	StatusBuyFailed           = "Buy failed."
	StatusSellFailed          = "Sell failed."
	StatusClaimFailed         = "Claim failed."
	StatusClaimed             = "Winnings claimed!"
	StatusNothingToClaim      = "Nothing to claim."
	StatusPositionNotFound    = "Position not found."
	StatusNotEnoughShares     = "Not enough shares."
	StatusPreparingMarket     = "Preparing market..."
	StatusCreatingMarket      = "Creating market..."
	StatusMarketTooShort      = "Market must be ≥1 hour long."
	StatusCreateFailed        = "Failed to create market."
	StatusTransactionFailed   = "Transaction failed. Try again."

	statusBoughtFmt        = "Bought %s for %s USDT"
	statusSoldFmt          = "Sold %s shares"
	statusNeedLiquidityFmt = "Need ≥ %s USDT."
)

// Known rejection reasons of the market contract.
const (
	reasonInvalidEndTime        = "Invalid end time"
	reasonInsufficientLiquidity = "Insufficient liquidity"
)
