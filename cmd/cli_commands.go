package cmd

// commandDocs documentation info used for help command.
type commandDocs struct {
	name    string
	params  string
	summary string
}

var commandHelp = []commandDocs{
	{"PING", "[message]", "Check the connection, echoing message when given."},
	{"APPEND", "payload", "Store payload and return its offset."},
	{"GET", "offset", "Return the record stored at offset."},
	{"FETCH", "offset [count]", "Return up to count records from offset, and the next offset."},
	{"INFO", "", "Show server, store and transfer statistics."},
	{"QUIT", "", "Close the connection."},
}
