package domain

// ConnID identifies one live connection. A participant may hold several
// connections at once (multiple devices or tabs).
type ConnID string
