// Package connectors pulls CRM-export mail out of the team mailbox. The
// export itself stays an offline file; mail is just the delivery channel.
package connectors

import "solpipe/internal"

type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
