package util

// AddressStrings renders a slice of addresses as lowercase hex, mostly for
// structured log fields.
func AddressStrings(addrs []EthereumAddress) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Address()
	}
	return out
}
