package version

// Version is the current release of the carebuddy server.
const Version = "0.1.0"
