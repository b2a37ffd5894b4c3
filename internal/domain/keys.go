package domain

// keys.go — direcciones deterministas de registros.
//
// Cada registro se direcciona con keccak256(tag || bytes de identidad...):
// dos llamadas que derivan la clave de la misma entidad caen siempre en la
// misma fila y nunca crean duplicados. Cada tipo de registro tiene su tag,
// así las claves de tipos distintos no se pisan.

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Address identifica a un participante, un token o una cuenta del engine.
type Address = common.Address

// Key es la dirección derivada (32 bytes) de un registro.
type Key [32]byte

const (
	tagConfig     = "config"
	tagMarket     = "market"
	tagLPPosition = "lp_position"
	tagUserInfo   = "user_info"
	tagResolution = "resolution"
	tagDispute    = "dispute"
	tagVault      = "market_vault"
	tagInsurance  = "insurance_pool"
)

// Hex devuelve la clave en hex con prefijo 0x.
func (k Key) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

func (k Key) String() string { return k.Hex() }

// IsZero indica si k es la clave cero.
func (k Key) IsZero() bool { return k == Key{} }

// KeyFromHex parsea una clave hex de 64 caracteres, con o sin prefijo 0x.
func KeyFromHex(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(trim0x(s))
	if err != nil || len(b) != len(k) {
		return k, ErrNotFound
	}
	copy(k[:], b)
	return k, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func derive(tag string, parts ...[]byte) Key {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(tag))
	data = append(data, parts...)
	return Key(crypto.Keccak256Hash(data...))
}

// ConfigKey es la dirección del Config global.
func ConfigKey() Key { return derive(tagConfig) }

// MarketKey deriva la dirección del mercado a partir de sus tokens YES y NO.
// El orden cuenta para la clave; CreateMarket además impide reusar un token.
func MarketKey(yesToken, noToken Address) Key {
	return derive(tagMarket, yesToken.Bytes(), noToken.Bytes())
}

// LPPositionKey deriva la dirección de la posición de un LP en un mercado.
func LPPositionKey(market Key, provider Address) Key {
	return derive(tagLPPosition, market[:], provider.Bytes())
}

// UserInfoKey deriva la dirección del registro contable de un usuario en un mercado.
func UserInfoKey(market Key, user Address) Key {
	return derive(tagUserInfo, market[:], user.Bytes())
}

// ResolutionKey deriva la dirección de la resolución del mercado.
func ResolutionKey(market Key) Key {
	return derive(tagResolution, market[:])
}

// DisputeKey deriva la dirección de la disputa de un usuario contra una
// resolución. Un usuario tiene como mucho una disputa por resolución.
func DisputeKey(resolution Key, user Address) Key {
	return derive(tagDispute, resolution[:], user.Bytes())
}

// VaultAddress es la cuenta de colateral del engine que respalda un mercado.
func VaultAddress(market Key) Address {
	k := derive(tagVault, market[:])
	return common.BytesToAddress(k[12:])
}

// InsuranceAddress es la cuenta de colateral del fondo de seguro.
func InsuranceAddress() Address {
	k := derive(tagInsurance)
	return common.BytesToAddress(k[12:])
}
