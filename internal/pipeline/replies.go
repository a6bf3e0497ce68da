package pipeline

import "fmt"

const (
	replyAddressMissing = "I couldn't find your Ethereum address. Please verify an Ethereum address on your Farcaster profile before creating a coin."
	replyParseFailed    = "I couldn't parse your coin creation request. Please use the format: coin this content: name: [name] ticker: [ticker]"
)

func usageReply(botName string) string {
	return fmt.Sprintf("👋 Hi there! I'm @%s, a bot that creates Zora ERC20 coins from images.\n\n"+
		"To create a coin, tag me with an image and include the text: \"coin this content: name: YourCoinName ticker: YCN\"\n\n"+
		"Make sure your profile has a verified Ethereum address, as you'll be set as the payout recipient.", botName)
}

func workingReply(name, symbol string) string {
	return fmt.Sprintf("Working on creating your %s (%s) coin... This might take a minute.", name, symbol)
}

func successReply(name, symbol, contract, explorer, txHash string) string {
	return fmt.Sprintf("🎉 Successfully created %s (%s) coin!\n\nContract: %s\nTransaction: %s/tx/%s\n\nYour coin is now live on Base!",
		name, symbol, contract, explorer, txHash)
}

func errorReply(err error) string {
	return fmt.Sprintf("Sorry, there was an error creating your coin: %s. Please try again later.", err.Error())
}
