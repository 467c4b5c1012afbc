package ledger

import "fmt"

// CardSuspenseAccountCode is the ledger account used to park card transactions pre-settlement.
const CardSuspenseAccountCode = "suspense:card"

// JointAccountCode returns the ledger code holding a joint account's shared balance.
func JointAccountCode(accountID int64) string {
	return fmt.Sprintf("joint:%d", accountID)
}

// MemberFloatCode returns the ledger code holding a member's personal float,
// the source of joint-account deposits and the target of withdrawal payouts.
func MemberFloatCode(userID string) string {
	return fmt.Sprintf("member:%s", userID)
}
