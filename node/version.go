package node

// Set with -ldflags "-X github.com/fzft/go-mock-mq/node.gitSHA1=..."
var (
	version   string = "0.1.0"
	gitSHA1   string = "unknown"
	buildDate string = "unknown"
)

func Version() string {
	return version
}

func GitSHA1() string {
	return gitSHA1
}

func BuildDate() string {
	return buildDate
}
