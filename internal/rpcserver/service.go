// Package rpcserver exposes the mlscore façade as a gorilla/rpc JSON-RPC
// 2.0 service. This is the concrete realization of spec.md §1's "must
// present a flat, call-based boundary to non-native callers" for a Go
// rendition that has no WASM/FFI host to bind into directly — every
// method here mirrors a mlscore façade function 1:1, taking a request
// struct of primitive fields and returning a response struct or error.
package rpcserver

import (
	"net/http"

	"github.com/cairnmsg/mlscore"
)

// MLSService is the gorilla/rpc service type. Every exported method
// with the signature func(*http.Request, *Args, *Reply) error is
// registered as an RPC method named "MLSService.<Method>".
type MLSService struct{}

// CreateCredentialArgs / Reply mirror mlscore.CreateCredential.
type CreateCredentialArgs struct {
	IdentityPublicKey []byte `json:"identityPublicKey"`
}

type CredentialBundleReply struct {
	Identity          []byte `json:"identity"`
	SigningPublicKey  []byte `json:"signingPublicKey"`
	SigningPrivateKey []byte `json:"signingPrivateKey"`
}

func (s *MLSService) CreateCredential(r *http.Request, args *CreateCredentialArgs, reply *CredentialBundleReply) error {
	b, err := mlscore.CreateCredential(args.IdentityPublicKey)
	if err != nil {
		return err
	}
	*reply = CredentialBundleReply(b)
	return nil
}

// ImportSigningKeyArgs mirrors mlscore.ImportSigningKey.
type ImportSigningKeyArgs struct {
	IdentityPublicKey []byte `json:"identityPublicKey"`
	SigningPrivateKey []byte `json:"signingPrivateKey"`
	SigningPublicKey  []byte `json:"signingPublicKey"`
}

func (s *MLSService) ImportSigningKey(r *http.Request, args *ImportSigningKeyArgs, reply *CredentialBundleReply) error {
	b, err := mlscore.ImportSigningKey(args.IdentityPublicKey, args.SigningPrivateKey, args.SigningPublicKey)
	if err != nil {
		return err
	}
	*reply = CredentialBundleReply(b)
	return nil
}

// SupportedCiphersuitesReply carries the JSON escape hatch as a string.
type SupportedCiphersuitesReply struct {
	JSON string `json:"json"`
}

func (s *MLSService) SupportedCiphersuites(r *http.Request, args *struct{}, reply *SupportedCiphersuitesReply) error {
	out, err := mlscore.SupportedCiphersuites()
	if err != nil {
		return err
	}
	reply.JSON = out
	return nil
}

// ProtocolVersionReply carries the protocol version string.
type ProtocolVersionReply struct {
	Version string `json:"version"`
}

func (s *MLSService) ProtocolVersion(r *http.Request, args *struct{}, reply *ProtocolVersionReply) error {
	reply.Version = mlscore.ProtocolVersion()
	return nil
}

// GenerateKeyPackageArgs mirrors mlscore.GenerateKeyPackage.
type GenerateKeyPackageArgs struct {
	IdentityPublicKey []byte `json:"identityPublicKey"`
	SigningPrivateKey []byte `json:"signingPrivateKey"`
	SigningPublicKey  []byte `json:"signingPublicKey"`
}

type KeyPackageResultReply struct {
	KeyPackageData []byte `json:"keyPackageData"`
	InitPrivateKey []byte `json:"initPrivateKey"`
}

func (s *MLSService) GenerateKeyPackage(r *http.Request, args *GenerateKeyPackageArgs, reply *KeyPackageResultReply) error {
	res, err := mlscore.GenerateKeyPackage(args.IdentityPublicKey, args.SigningPrivateKey, args.SigningPublicKey)
	if err != nil {
		return err
	}
	*reply = KeyPackageResultReply(res)
	return nil
}

// SessionGenerateKeyPackageArgs mirrors mlscore.SessionGenerateKeyPackage.
type SessionGenerateKeyPackageArgs struct {
	SessionID uint32 `json:"sessionId"`
}

func (s *MLSService) SessionGenerateKeyPackage(r *http.Request, args *SessionGenerateKeyPackageArgs, reply *KeyPackageResultReply) error {
	res, err := mlscore.SessionGenerateKeyPackage(args.SessionID)
	if err != nil {
		return err
	}
	*reply = KeyPackageResultReply(res)
	return nil
}

// NewSessionArgs mirrors mlscore.NewSession.
type NewSessionArgs struct {
	Identity          []byte `json:"identity"`
	SigningPublicKey  []byte `json:"signingPublicKey"`
	SigningPrivateKey []byte `json:"signingPrivateKey"`
}

type SessionIDReply struct {
	SessionID uint32 `json:"sessionId"`
}

func (s *MLSService) NewSession(r *http.Request, args *NewSessionArgs, reply *SessionIDReply) error {
	id, err := mlscore.NewSession(mlscore.CredentialBundle{
		Identity:          args.Identity,
		SigningPublicKey:  args.SigningPublicKey,
		SigningPrivateKey: args.SigningPrivateKey,
	})
	if err != nil {
		return err
	}
	reply.SessionID = id
	return nil
}

// DestroySessionArgs mirrors mlscore.DestroySession.
type DestroySessionArgs struct {
	SessionID uint32 `json:"sessionId"`
}

type BoolReply struct {
	Value bool `json:"value"`
}

func (s *MLSService) DestroySession(r *http.Request, args *DestroySessionArgs, reply *BoolReply) error {
	reply.Value = mlscore.DestroySession(args.SessionID)
	return nil
}

// GroupIDArgs is shared by every op keyed only on (session, group).
type GroupIDArgs struct {
	SessionID uint32 `json:"sessionId"`
	GroupID   []byte `json:"groupId"`
}

func (s *MLSService) CreateGroup(r *http.Request, args *GroupIDArgs, reply *BoolReply) error {
	if err := mlscore.CreateGroup(args.SessionID, args.GroupID); err != nil {
		return err
	}
	reply.Value = true
	return nil
}

// AddMemberArgs mirrors mlscore.AddMember.
type AddMemberArgs struct {
	SessionID     uint32 `json:"sessionId"`
	GroupID       []byte `json:"groupId"`
	KeyPackageTLS []byte `json:"keyPackageTls"`
}

type AddMemberReply struct {
	Commit  []byte `json:"commit"`
	Welcome []byte `json:"welcome"`
}

func (s *MLSService) AddMember(r *http.Request, args *AddMemberArgs, reply *AddMemberReply) error {
	res, err := mlscore.AddMember(args.SessionID, args.GroupID, args.KeyPackageTLS)
	if err != nil {
		return err
	}
	reply.Commit = res.Commit
	reply.Welcome = res.Welcome
	return nil
}

// RemoveMemberArgs mirrors mlscore.RemoveMember.
type RemoveMemberArgs struct {
	SessionID uint32 `json:"sessionId"`
	GroupID   []byte `json:"groupId"`
	LeafIndex uint32 `json:"leafIndex"`
}

type BytesReply struct {
	Data []byte `json:"data"`
}

func (s *MLSService) RemoveMember(r *http.Request, args *RemoveMemberArgs, reply *BytesReply) error {
	out, err := mlscore.RemoveMember(args.SessionID, args.GroupID, args.LeafIndex)
	if err != nil {
		return err
	}
	reply.Data = out
	return nil
}

func (s *MLSService) UpdateSelf(r *http.Request, args *GroupIDArgs, reply *BytesReply) error {
	out, err := mlscore.UpdateSelf(args.SessionID, args.GroupID)
	if err != nil {
		return err
	}
	reply.Data = out
	return nil
}

// ProcessWelcomeArgs mirrors mlscore.ProcessWelcome.
type ProcessWelcomeArgs struct {
	SessionID  uint32 `json:"sessionId"`
	WelcomeTLS []byte `json:"welcomeTls"`
}

func (s *MLSService) ProcessWelcome(r *http.Request, args *ProcessWelcomeArgs, reply *BytesReply) error {
	out, err := mlscore.ProcessWelcome(args.SessionID, args.WelcomeTLS)
	if err != nil {
		return err
	}
	reply.Data = out
	return nil
}

// EncryptMessageArgs mirrors mlscore.EncryptMessage.
type EncryptMessageArgs struct {
	SessionID uint32 `json:"sessionId"`
	GroupID   []byte `json:"groupId"`
	Plaintext []byte `json:"plaintext"`
}

func (s *MLSService) EncryptMessage(r *http.Request, args *EncryptMessageArgs, reply *BytesReply) error {
	out, err := mlscore.EncryptMessage(args.SessionID, args.GroupID, args.Plaintext)
	if err != nil {
		return err
	}
	reply.Data = out
	return nil
}

// ProcessGroupMessageArgs mirrors mlscore.ProcessGroupMessage.
type ProcessGroupMessageArgs struct {
	SessionID  uint32 `json:"sessionId"`
	GroupID    []byte `json:"groupId"`
	MessageTLS []byte `json:"messageTls"`
}

type ProcessedMessageReply struct {
	MessageType    string `json:"messageType"`
	Plaintext      []byte `json:"plaintext"`
	SenderIdentity []byte `json:"senderIdentity"`
}

func (s *MLSService) ProcessGroupMessage(r *http.Request, args *ProcessGroupMessageArgs, reply *ProcessedMessageReply) error {
	out, err := mlscore.ProcessGroupMessage(args.SessionID, args.GroupID, args.MessageTLS)
	if err != nil {
		return err
	}
	*reply = ProcessedMessageReply(out)
	return nil
}

type EpochReply struct {
	Epoch uint64 `json:"epoch"`
}

func (s *MLSService) GetEpoch(r *http.Request, args *GroupIDArgs, reply *EpochReply) error {
	e, err := mlscore.GetEpoch(args.SessionID, args.GroupID)
	if err != nil {
		return err
	}
	reply.Epoch = e
	return nil
}

func (s *MLSService) GetMembers(r *http.Request, args *GroupIDArgs, reply *SupportedCiphersuitesReply) error {
	m, err := mlscore.GetMembers(args.SessionID, args.GroupID)
	if err != nil {
		return err
	}
	reply.JSON = m
	return nil
}
