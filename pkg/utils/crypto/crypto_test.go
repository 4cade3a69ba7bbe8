package crypto

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := "unit-test-passphrase"
	plaintext := "1//0gabcdef-refresh-token"

	sealed, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if sealed == plaintext {
		t.Fatal("ciphertext equals plaintext")
	}

	opened, err := Decrypt(sealed, key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if opened != plaintext {
		t.Fatalf("round trip mismatch: got %q", opened)
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	key := "unit-test-passphrase"
	a, err := Encrypt("same input", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt("same input", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Fatal("two encryptions of the same input produced identical output")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	sealed, err := Encrypt("secret", "key-one")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(sealed, "key-two"); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
	if _, err := Decrypt("not base64!!!", "key-one"); err == nil {
		t.Fatal("expected malformed ciphertext to fail")
	}
}
