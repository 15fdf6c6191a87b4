// internal/blockchain/solbc/metaplex.go
package solbc

import (
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// TokenMetadataProgramID is the Metaplex token metadata program.
var TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// metadataV1Key tags a Metaplex MetadataV1 account.
const metadataV1Key = 4

// MetaplexMetadata is the leading part of a Metaplex metadata account.
type MetaplexMetadata struct {
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// FindMetadataAddress derives the Metaplex metadata PDA of mint.
func FindMetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), TokenMetadataProgramID.Bytes(), mint.Bytes()},
		TokenMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata address: %w", err)
	}
	return addr, nil
}

// ParseMetaplexMetadata decodes name, symbol and uri. Fixed-width string
// padding is trimmed.
func ParseMetaplexMetadata(data []byte) (*MetaplexMetadata, error) {
	dec := bin.NewBinDecoder(data)

	key, err := dec.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata key: %w", err)
	}
	if key != metadataV1Key {
		return nil, fmt.Errorf("unexpected metadata account key: %d", key)
	}

	var md MetaplexMetadata
	authority, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("failed to read update authority: %w", err)
	}
	md.UpdateAuthority = solana.PublicKeyFromBytes(authority)

	mint, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("failed to read mint: %w", err)
	}
	md.Mint = solana.PublicKeyFromBytes(mint)

	for _, field := range []*string{&md.Name, &md.Symbol, &md.URI} {
		n, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return nil, fmt.Errorf("failed to read string length: %w", err)
		}
		if int(n) > dec.Remaining() {
			return nil, fmt.Errorf("string length %d exceeds remaining %d bytes", n, dec.Remaining())
		}
		raw, err := dec.ReadNBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("failed to read string: %w", err)
		}
		*field = strings.TrimRight(strings.ToValidUTF8(string(raw), "�"), "\x00")
	}

	return &md, nil
}
