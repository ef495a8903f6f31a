package parley

// Version is the current release of Parley.
var Version = "0.1.0"
