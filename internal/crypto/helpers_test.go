package crypto

import (
	"crypto/md5"
	"crypto/sha1"
	"hash"
	"math/big"
)

func newTestMD5() hash.Hash  { return md5.New() }
func newTestSHA1() hash.Hash { return sha1.New() }

// testDHParams returns a small (but still multi-hundred-bit) safe-prime
// group, large enough to exercise DHKeyex without the cost of a real
// 2048-bit modexp in every test run.
func testDHParams() DHParams {
	p, _ := new(big.Int).SetString(
		"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E0"+
			"88A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A43"+
			"1B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C4"+
			"2E9A63A3620FFFFFFFFFFFFFFFF", 16)
	return DHParams{P: p, G: big.NewInt(2)}
}
