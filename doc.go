/*
Package users provides user account storage and bearer token
authentication for web backends.

Accounts are stored as one document per user, keyed by username, in a
MongoDB collection accessed through the official mongo-go driver.
Passwords are hashed with bcrypt. Access tokens are signed, expiring
JWTs whose subject claim carries the username; validity is fully
stateless and is determined by signature, algorithm, and expiration
alone.

The flow is the following:

 1. A user signs up; UserManager.Create persists the account and
    rejects duplicate usernames atomically.
 2. The user logs in with username and password;
    Authenticator.Login verifies the credentials and issues a token.
 3. Requests present the token in an Authorization: Bearer header;
    the Protected middleware validates it, resolves the account, and
    rejects tokens whose user is missing or inactive.

There is no server side session state and no revocation list: a token
remains valid until it expires.
*/
package users
