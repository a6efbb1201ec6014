package version

// Version is the pipeline release version
const Version = "1.0.0"
