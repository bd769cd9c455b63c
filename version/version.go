package version

// AppVersion is overridden at build time with
// -ldflags "-X nessql/version.AppVersion=v1.2.3".
var AppVersion = "v1.0.0"
