package router

// RouterABI covers the UniswapV2-style router methods the venue uses.
const RouterABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "amountOutMin", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"}
		],
		"name": "swapExactTokensForTokens",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Revert reason fragments emitted by V2 routers and pairs.
const (
	reasonExpired      = "EXPIRED"
	reasonOutputAmount = "INSUFFICIENT_OUTPUT_AMOUNT"
	reasonLiquidity    = "INSUFFICIENT_LIQUIDITY"
	reasonInputAmount  = "INSUFFICIENT_INPUT_AMOUNT"
	reasonTransferFrom = "TRANSFER_FROM_FAILED"
	reasonAllowance    = "allowance"
	reasonInvalidPath  = "INVALID_PATH"
)
