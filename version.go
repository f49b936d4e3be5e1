package featureflagshq

// Version is the SDK release version, sent with every API request.
const Version = "1.0.0"
