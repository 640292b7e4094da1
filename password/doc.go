// Package password provides the default implementation of the one-way
// hash/verify capability: Argon2id with PHC-formatted digests. The engine
// only depends on the Hasher interface, so deployments with an existing
// hashing scheme can swap their own implementation in through the Builder.
package password
