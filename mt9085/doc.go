// Package mt9085 provides a thin instrument layer for the Anritsu MT9085
// ACCESS Master on top of the scpi package.
//
// It fixes the connection parameters the instrument dictates (SCPI service
// on TCP port 2288, CR-LF message terminator) and exposes typed helpers for
// the IEEE-488.2 common commands: identification (*IDN?), reset (*RST),
// status clear (*CLS), and operation-complete polling (*OPC?). Everything
// else the instrument understands can be sent as raw text through the
// underlying link.
package mt9085
