package ir

// EngineVersion is the morphic engine version, reported by `morphic --version`.
const EngineVersion = "0.1.0"
