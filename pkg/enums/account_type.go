package enums

// AccountType distinguishes supplier accounts from regular buyers.
type AccountType string

const (
	AccountTypeShop  AccountType = "shop"
	AccountTypeBuyer AccountType = "buyer"
)

var validAccountTypes = []AccountType{
	AccountTypeShop,
	AccountTypeBuyer,
}

// String implements fmt.Stringer.
func (a AccountType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccountType.
func (a AccountType) IsValid() bool {
	return member(a, validAccountTypes)
}

// ParseAccountType converts raw input into an AccountType. Empty input
// yields the buyer default.
func ParseAccountType(value string) (AccountType, error) {
	if value == "" {
		return AccountTypeBuyer, nil
	}
	return parse(value, "account type", validAccountTypes)
}
