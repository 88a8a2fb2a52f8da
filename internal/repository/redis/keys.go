package redis

import "fmt"

const ns = "courtside:v1"

func KeyFields() string {
	return ns + ":fields"
}

func KeyActivePrices(date string) string {
	return fmt.Sprintf("%s:prices:active:%s", ns, date)
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemToggle(kind, subject, idemKey string) string {
	return fmt.Sprintf("%s:idem:%s:%s:%s", ns, kind, subject, idemKey)
}

func ChannelScheduleChanged() string {
	return ns + ":schedule:changed"
}

func KeyWatchSeen(subject, date string) string {
	return fmt.Sprintf("%s:watch:seen:%s:%s", ns, subject, date)
}
