// Package scpi provides a minimal client for exchanging SCPI (Standard
// Commands for Programmable Instruments) text commands with a single
// networked test instrument over a raw TCP socket.
//
// SCPI here is plain newline-delimited ASCII: every outbound message is the
// command text plus the configured line terminator, and every query response
// is one text line ending in the same terminator. There is no framing,
// checksum, or length prefix, and the link performs no validation of the
// command text against any SCPI grammar.
//
// Key Features:
//   - Link Management: opens and closes one TCP connection to one instrument address.
//   - Commands and Queries: Send writes a terminated command; Query writes a
//     command ending in '?' and reads back one response line with the
//     terminator stripped.
//   - Scoped Acquisition: Session connects, runs a caller-supplied body, and
//     disconnects on every exit path, so the socket can't leak.
//   - Buffer Discipline: bytes delivered past a response terminator are kept
//     for the next query instead of being discarded.
//   - Customization: functional options for timeouts, terminator, buffer
//     size, and logger.
//
// Link Establishment:
//   - Create a LinkConfig with the desired parameters using NewLinkConfig().
//   - Use the NewLink function to create a new Link.
//   - Call the Connect method to open the connection, or use Session.
//
// Error Handling:
//   - Operations on a disconnected link fail with ErrNotConnected.
//   - Connect on a connected link fails with ErrAlreadyConnected.
//   - A query whose response terminator never arrives fails with ErrTimeout.
//   - Transport failures are wrapped and surfaced immediately; the link never
//     retries internally.
//
// Usage Example:
//
//	func main() {
//	    cfg, err := scpi.NewLinkConfig("192.168.1.2", 2288,
//	        scpi.WithTerminator([]byte("\r\n")),
//	        scpi.WithResponseTimeout(10*time.Second),
//	    )
//	    // ... handle error ...
//
//	    link, err := scpi.NewLink(cfg)
//	    // ... handle error ...
//
//	    err = link.Session(context.Background(), func(link *scpi.Link) error {
//	        idn, err := link.Query("*IDN?")
//	        if err != nil {
//	            return err
//	        }
//	        fmt.Println(idn)
//
//	        return link.Send("*RST")
//	    })
//	    // ... handle error ...
//	}
package scpi
