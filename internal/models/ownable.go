package models

// Ownable is implemented by every entity protected by the ownership chain.
// OwningAccount walks the entity's parent references up to the account.
type Ownable interface {
	OwningAccount() int64
}

var (
	_ Ownable = Portfolio{}
	_ Ownable = Asset{}
	_ Ownable = Transaction{}
	_ Ownable = Profile{}
)
