package ir

// EngineVersion is the viewmerge version reported by --version.
const EngineVersion = "0.1.0"
